package api

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// ExportHandler handles GET /export: the full ledger joined with account
// identity as CSV, the spreadsheet-log projection. Read-only; balances
// are never derived from this.
func (h *HandlerProvider) ExportHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svcs.Bonus.AuditRows(r.Context())
	if err != nil {
		slog.Error("audit export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="bonus_audit.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)

	record := []string{"entry_id", "chat_id", "display_name", "promo_code",
		"amount", "status", "operation", "description", "created_at"}

	err = cw.Write(record)
	if err != nil {
		slog.Error("write csv header", "error", err)
		return
	}

	for _, row := range rows {
		record = record[:0]
		record = append(record,
			strconv.FormatInt(row.EntryID, 10),
			strconv.FormatInt(row.ChatID, 10),
			row.DisplayName,
			row.PromoCode,
			strconv.FormatInt(row.Amount, 10),
			string(row.Status),
			row.Operation,
			row.Description,
			row.CreatedAt.UTC().Format(time.RFC3339),
		)

		err = cw.Write(record)
		if err != nil {
			slog.Error("write csv row", "error", err, "entry_id", row.EntryID)
			return
		}
	}

	cw.Flush()

	err = cw.Error()
	if err != nil {
		slog.Error("flush csv export", "error", err)
	}
}
