package ledger

import (
	"context"
	"fmt"

	"github.com/refbali/referralbot/internal/repos/ledger"
)

// AuditRows returns every entry joined with its account, oldest first,
// for the spreadsheet export.
func (r *ledgerRepo) AuditRows(ctx context.Context) ([]ledger.AuditRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, a.chat_id, a.display_name, a.promo_code,
		       e.amount, e.status, e.operation, e.description, e.created_at
		FROM ledger_entries e
		JOIN accounts a ON a.id = e.account_id
		ORDER BY e.created_at, e.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query audit rows: %w", err)
	}
	defer rows.Close()

	var out []ledger.AuditRow

	for rows.Next() {
		var row ledger.AuditRow

		err = rows.Scan(&row.EntryID, &row.ChatID, &row.DisplayName, &row.PromoCode,
			&row.Amount, &row.Status, &row.Operation, &row.Description, &row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}

		out = append(out, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}

	return out, nil
}
