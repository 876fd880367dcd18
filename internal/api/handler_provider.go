package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/refbali/referralbot/internal/repos/accounts"
	"github.com/refbali/referralbot/internal/repos/ledger"
	"github.com/refbali/referralbot/internal/repos/purchases"
	"github.com/refbali/referralbot/internal/services/bonus"
)

// HandlerProvider exposes the service layer as HTTP handlers.
type HandlerProvider struct {
	svcs Services
}

func NewHandler(svcs Services) *HandlerProvider {
	return &HandlerProvider{svcs: svcs}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseAccountIDFromPath(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "accountID")
	if idStr == "" {
		return 0, fmt.Errorf("missing accountID")
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid accountID")
	}

	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON")
	}

	return nil
}

func isAccountNotFound(err error) bool {
	return errors.Is(err, accounts.ErrAccountNotFound) ||
		errors.Is(err, purchases.ErrAccountNotFound) ||
		errors.Is(err, ledger.ErrAccountNotFound)
}

type balanceResponse struct {
	AccountID int64 `json:"accountId"`
	Available int64 `json:"available"`
	Pending   int64 `json:"pending"`
	Weekly    int64 `json:"weekly"`
	Total     int64 `json:"total"`
}

func toBalanceResponse(accountID int64, bal bonus.Balance) balanceResponse {
	return balanceResponse{
		AccountID: accountID,
		Available: bal.Available,
		Pending:   bal.Pending,
		Weekly:    bal.Weekly,
		Total:     bal.Total,
	}
}

// --- Handlers ---

type purchaseRequest struct {
	AccountID   int64  `json:"accountId"`
	Amount      int64  `json:"amount"`
	ExternalRef string `json:"externalRef"`
}

// CreatePurchaseHandler handles POST /purchases: the shop backend reports
// a purchase, the inviter (if any) gets the pending accrual.
func (h *HandlerProvider) CreatePurchaseHandler(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.AccountID <= 0 {
		writeError(w, http.StatusBadRequest, "accountId required")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.ExternalRef == "" {
		// Caller gets at-most-once only by supplying its own ref; a
		// generated one still satisfies the unique index.
		req.ExternalRef = uuid.NewString()
	}

	res, err := h.svcs.Bonus.RecordPurchase(r.Context(), bonus.PurchaseInput{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		ExternalRef: req.ExternalRef,
	})
	if err != nil {
		switch {
		case errors.Is(err, purchases.ErrDuplicatePurchase):
			writeError(w, http.StatusConflict, "duplicate purchase")
		case isAccountNotFound(err):
			writeError(w, http.StatusNotFound, "account not found")
		case errors.Is(err, bonus.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "amount must be positive")
		default:
			slog.Error("record purchase failed", "error", err, "account_id", req.AccountID)
			writeError(w, http.StatusInternalServerError, "internal error")
		}

		return
	}

	resp := map[string]any{
		"purchaseId":  res.PurchaseID,
		"externalRef": req.ExternalRef,
		"bonusAmount": res.BonusAmount,
	}
	if res.InviterID != nil {
		resp["inviterId"] = *res.InviterID
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GetBalanceHandler handles GET /accounts/{accountID}/balance.
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseAccountIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accountID in path")
		return
	}

	bal, err := h.svcs.Bonus.GetBalance(r.Context(), accountID)
	if err != nil {
		if isAccountNotFound(err) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}

		slog.Error("get balance failed", "error", err, "account_id", accountID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toBalanceResponse(accountID, bal))
}

type historyEntry struct {
	ID          int64     `json:"id"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status"`
	Operation   string    `json:"operation"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GetHistoryHandler handles GET /accounts/{accountID}/history?limit=N.
func (h *HandlerProvider) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseAccountIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accountID in path")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	entries, err := h.svcs.Bonus.History(r.Context(), accountID, limit)
	if err != nil {
		slog.Error("get history failed", "error", err, "account_id", accountID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{
			ID:          e.ID,
			Amount:      e.Amount,
			Status:      string(e.Status),
			Operation:   e.Operation,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"accountId": accountID, "entries": out})
}

// PayOutHandler handles POST /accounts/{accountID}/payout: appends one
// negative entry for the full available balance.
func (h *HandlerProvider) PayOutHandler(w http.ResponseWriter, r *http.Request) {
	h.drainHandler(w, r, h.svcs.Bonus.PayOutAll, "paidOut")
}

// ForfeitHandler handles POST /accounts/{accountID}/forfeit: same ledger
// effect as payout under a different audit label.
func (h *HandlerProvider) ForfeitHandler(w http.ResponseWriter, r *http.Request) {
	h.drainHandler(w, r, h.svcs.Bonus.Forfeit, "forfeited")
}

func (h *HandlerProvider) drainHandler(
	w http.ResponseWriter,
	r *http.Request,
	drain func(ctx context.Context, accountID int64) (int64, error),
	field string,
) {
	accountID, err := parseAccountIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accountID in path")
		return
	}

	amount, err := drain(r.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, bonus.ErrNothingToPayOut):
			writeError(w, http.StatusConflict, "no available balance")
		case isAccountNotFound(err):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			slog.Error("drain failed", "error", err, "account_id", accountID)
			writeError(w, http.StatusInternalServerError, "internal error")
		}

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"accountId": accountID, field: amount})
}

type reduceRequest struct {
	Amount int64 `json:"amount"`
}

// ReduceHandler handles POST /accounts/{accountID}/reduce: deducts the
// requested amount, rejecting requests beyond the available balance.
func (h *HandlerProvider) ReduceHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseAccountIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accountID in path")
		return
	}

	var req reduceRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.svcs.Bonus.Reduce(r.Context(), accountID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, bonus.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "amount must be positive")
		case errors.Is(err, bonus.ErrInsufficientBalance):
			writeError(w, http.StatusConflict, "insufficient available balance")
		case isAccountNotFound(err):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			slog.Error("reduce failed", "error", err, "account_id", accountID)
			writeError(w, http.StatusInternalServerError, "internal error")
		}

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"accountId": accountID, "reduced": req.Amount})
}

type accountSummary struct {
	ID             int64           `json:"id"`
	ChatID         int64           `json:"chatId"`
	DisplayName    string          `json:"displayName"`
	PromoCode      string          `json:"promoCode"`
	InvitedBy      *int64          `json:"invitedBy,omitempty"`
	ReferralCount  int64           `json:"referralCount"`
	PurchaseVolume int64           `json:"referralPurchaseVolume"`
	Balance        balanceResponse `json:"balance"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// GetAccountHandler handles GET /accounts/{accountID}: one account with
// the same projection the listing uses.
func (h *HandlerProvider) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseAccountIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accountID in path")
		return
	}

	acc, err := h.svcs.Referral.GetAccount(r.Context(), accountID)
	if err != nil {
		if isAccountNotFound(err) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}

		slog.Error("get account failed", "error", err, "account_id", accountID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	bal, err := h.svcs.Bonus.GetBalance(r.Context(), accountID)
	if err != nil {
		slog.Error("balance for account failed", "error", err, "account_id", accountID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	stats, err := h.svcs.Bonus.ReferralStats(r.Context(), accountID)
	if err != nil {
		slog.Error("stats for account failed", "error", err, "account_id", accountID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, accountSummary{
		ID:             acc.ID,
		ChatID:         acc.ChatID,
		DisplayName:    acc.DisplayName,
		PromoCode:      acc.PromoCode,
		InvitedBy:      acc.InvitedBy,
		ReferralCount:  stats.ReferralCount,
		PurchaseVolume: stats.PurchaseVolume,
		Balance:        toBalanceResponse(acc.ID, bal),
		CreatedAt:      acc.CreatedAt,
	})
}

type purchaseRow struct {
	ID           int64     `json:"id"`
	Amount       int64     `json:"amount"`
	ExternalRef  string    `json:"externalRef"`
	BonusEntryID *int64    `json:"bonusEntryId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ListPurchasesHandler handles GET /accounts/{accountID}/purchases.
func (h *HandlerProvider) ListPurchasesHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseAccountIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accountID in path")
		return
	}

	list, err := h.svcs.Bonus.Purchases(r.Context(), accountID)
	if err != nil {
		slog.Error("list purchases failed", "error", err, "account_id", accountID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]purchaseRow, 0, len(list))
	for _, p := range list {
		out = append(out, purchaseRow{
			ID:           p.ID,
			Amount:       p.Amount,
			ExternalRef:  p.ExternalRef,
			BonusEntryID: p.BonusEntryID,
			CreatedAt:    p.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"accountId": accountID, "purchases": out})
}

// ListAccountsHandler handles GET /accounts: the admin panel projection.
// Balances come from the same ledger formula as everywhere else.
func (h *HandlerProvider) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.svcs.Referral.ListAccounts(r.Context())
	if err != nil {
		slog.Error("list accounts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]accountSummary, 0, len(list))

	for _, acc := range list {
		bal, err := h.svcs.Bonus.GetBalance(r.Context(), acc.ID)
		if err != nil {
			slog.Error("balance for projection failed", "error", err, "account_id", acc.ID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		stats, err := h.svcs.Bonus.ReferralStats(r.Context(), acc.ID)
		if err != nil {
			slog.Error("stats for projection failed", "error", err, "account_id", acc.ID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out = append(out, accountSummary{
			ID:             acc.ID,
			ChatID:         acc.ChatID,
			DisplayName:    acc.DisplayName,
			PromoCode:      acc.PromoCode,
			InvitedBy:      acc.InvitedBy,
			ReferralCount:  stats.ReferralCount,
			PurchaseVolume: stats.PurchaseVolume,
			Balance:        toBalanceResponse(acc.ID, bal),
			CreatedAt:      acc.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"accounts": out})
}
