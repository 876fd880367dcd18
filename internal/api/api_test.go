package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/refbali/referralbot/internal/config"
	"github.com/refbali/referralbot/internal/infra/pgtestutil"
	"github.com/refbali/referralbot/internal/services/bonus"
	"github.com/refbali/referralbot/internal/services/referral"
)

const testToken = "test-admin-token"

func newTestServer(t *testing.T) (*httptest.Server, *sql.DB, func()) {
	t.Helper()

	db, cleanup := pgtestutil.NewTestDB(t)

	svcs := Services{
		Bonus: bonus.New(db, config.BonusConfig{
			RatePercent: config.DefaultRatePercent,
			HoldPeriod:  config.DefaultHoldPeriod,
		}),
		Referral: referral.New(db),
	}

	ts := httptest.NewServer(NewRouter(testToken, svcs))

	return ts, db, func() {
		ts.Close()
		cleanup()
	}
}

func doRequest(t *testing.T, method, url string, body any, token string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	return resp.StatusCode, raw
}

func seedAccounts(t *testing.T, db *sql.DB) (inviterID, buyerID int64) {
	t.Helper()

	err := db.QueryRow(`
		INSERT INTO accounts (chat_id, display_name, promo_code)
		VALUES (1, 'Alice', 'Alice') RETURNING id
	`).Scan(&inviterID)
	if err != nil {
		t.Fatalf("seed inviter: %v", err)
	}

	err = db.QueryRow(`
		INSERT INTO accounts (chat_id, display_name, promo_code, invited_by)
		VALUES (2, 'Bob', 'Bob', $1) RETURNING id
	`, inviterID).Scan(&buyerID)
	if err != nil {
		t.Fatalf("seed buyer: %v", err)
	}

	return inviterID, buyerID
}

func vest(t *testing.T, db *sql.DB, accountID int64) {
	t.Helper()

	_, err := db.Exec(`
		UPDATE ledger_entries
		SET created_at = created_at - interval '15 days'
		WHERE account_id = $1
	`, accountID)
	if err != nil {
		t.Fatalf("vest entries: %v", err)
	}
}

func TestAPI_Healthz_NoAuth(t *testing.T) {
	t.Parallel()

	ts, _, teardown := newTestServer(t)
	defer teardown()

	code, _ := doRequest(t, http.MethodGet, ts.URL+"/healthz", nil, "")
	if code != http.StatusOK {
		t.Fatalf("healthz: code = %d, want 200", code)
	}
}

func TestAPI_AuthRequired(t *testing.T) {
	t.Parallel()

	ts, _, teardown := newTestServer(t)
	defer teardown()

	code, _ := doRequest(t, http.MethodGet, ts.URL+"/accounts", nil, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("no token: code = %d, want 401", code)
	}

	code, _ = doRequest(t, http.MethodGet, ts.URL+"/accounts", nil, "wrong-token")
	if code != http.StatusUnauthorized {
		t.Fatalf("wrong token: code = %d, want 401", code)
	}
}

func TestAPI_PurchaseFlow(t *testing.T) {
	t.Parallel()

	ts, db, teardown := newTestServer(t)
	defer teardown()

	inviterID, buyerID := seedAccounts(t, db)

	body := map[string]any{"accountId": buyerID, "amount": 1000000, "externalRef": "order-1"}

	code, raw := doRequest(t, http.MethodPost, ts.URL+"/purchases", body, testToken)
	if code != http.StatusCreated {
		t.Fatalf("purchase: code = %d (%s), want 201", code, raw)
	}

	var created struct {
		BonusAmount int64 `json:"bonusAmount"`
		InviterID   int64 `json:"inviterId"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.BonusAmount != 50000 || created.InviterID != inviterID {
		t.Fatalf("unexpected purchase response: %s", raw)
	}

	// Replay conflicts and accrues nothing more.
	code, _ = doRequest(t, http.MethodPost, ts.URL+"/purchases", body, testToken)
	if code != http.StatusConflict {
		t.Fatalf("replay: code = %d, want 409", code)
	}

	// Unknown account 404s.
	bad := map[string]any{"accountId": 9999, "amount": 1000, "externalRef": "order-2"}
	code, _ = doRequest(t, http.MethodPost, ts.URL+"/purchases", bad, testToken)
	if code != http.StatusNotFound {
		t.Fatalf("unknown account: code = %d, want 404", code)
	}

	// Pending before vesting.
	var bal struct {
		Available int64 `json:"available"`
		Pending   int64 `json:"pending"`
	}

	url := fmt.Sprintf("%s/accounts/%d/balance", ts.URL, inviterID)
	code, raw = doRequest(t, http.MethodGet, url, nil, testToken)
	if code != http.StatusOK {
		t.Fatalf("balance: code = %d, want 200", code)
	}
	if err := json.Unmarshal(raw, &bal); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if bal.Pending != 50000 || bal.Available != 0 {
		t.Fatalf("pre-vest balance = %+v", bal)
	}

	vest(t, db, inviterID)

	code, raw = doRequest(t, http.MethodGet, url, nil, testToken)
	if code != http.StatusOK {
		t.Fatalf("balance 2: code = %d, want 200", code)
	}
	if err := json.Unmarshal(raw, &bal); err != nil {
		t.Fatalf("decode balance 2: %v", err)
	}
	if bal.Available != 50000 || bal.Pending != 0 {
		t.Fatalf("post-vest balance = %+v", bal)
	}
}

func TestAPI_AdminActions(t *testing.T) {
	t.Parallel()

	ts, db, teardown := newTestServer(t)
	defer teardown()

	inviterID, buyerID := seedAccounts(t, db)

	body := map[string]any{"accountId": buyerID, "amount": 1000000, "externalRef": "order-1"}
	code, _ := doRequest(t, http.MethodPost, ts.URL+"/purchases", body, testToken)
	if code != http.StatusCreated {
		t.Fatalf("purchase: code = %d, want 201", code)
	}
	vest(t, db, inviterID)

	base := fmt.Sprintf("%s/accounts/%d", ts.URL, inviterID)

	// Reduce beyond available -> 409, nothing changed.
	code, _ = doRequest(t, http.MethodPost, base+"/reduce", map[string]any{"amount": 70000}, testToken)
	if code != http.StatusConflict {
		t.Fatalf("over-reduce: code = %d, want 409", code)
	}

	code, _ = doRequest(t, http.MethodPost, base+"/reduce", map[string]any{"amount": 20000}, testToken)
	if code != http.StatusOK {
		t.Fatalf("reduce: code = %d, want 200", code)
	}

	code, raw := doRequest(t, http.MethodPost, base+"/payout", nil, testToken)
	if code != http.StatusOK {
		t.Fatalf("payout: code = %d (%s), want 200", code, raw)
	}

	var paid struct {
		PaidOut int64 `json:"paidOut"`
	}
	if err := json.Unmarshal(raw, &paid); err != nil {
		t.Fatalf("decode payout: %v", err)
	}
	if paid.PaidOut != 30000 {
		t.Fatalf("paidOut = %d, want 30000", paid.PaidOut)
	}

	// Nothing left to pay or forfeit.
	code, _ = doRequest(t, http.MethodPost, base+"/payout", nil, testToken)
	if code != http.StatusConflict {
		t.Fatalf("second payout: code = %d, want 409", code)
	}
	code, _ = doRequest(t, http.MethodPost, base+"/forfeit", nil, testToken)
	if code != http.StatusConflict {
		t.Fatalf("forfeit empty: code = %d, want 409", code)
	}
}

func TestAPI_ListAccountsAndExport(t *testing.T) {
	t.Parallel()

	ts, db, teardown := newTestServer(t)
	defer teardown()

	inviterID, buyerID := seedAccounts(t, db)

	body := map[string]any{"accountId": buyerID, "amount": 500000, "externalRef": "order-1"}
	code, _ := doRequest(t, http.MethodPost, ts.URL+"/purchases", body, testToken)
	if code != http.StatusCreated {
		t.Fatalf("purchase: code = %d, want 201", code)
	}

	code, raw := doRequest(t, http.MethodGet, ts.URL+"/accounts", nil, testToken)
	if code != http.StatusOK {
		t.Fatalf("accounts: code = %d, want 200", code)
	}

	var listing struct {
		Accounts []struct {
			ID            int64 `json:"id"`
			ReferralCount int64 `json:"referralCount"`
			Balance       struct {
				Pending int64 `json:"pending"`
			} `json:"balance"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		t.Fatalf("decode accounts: %v", err)
	}
	if len(listing.Accounts) != 2 {
		t.Fatalf("accounts len = %d, want 2", len(listing.Accounts))
	}
	for _, acc := range listing.Accounts {
		if acc.ID == inviterID {
			if acc.ReferralCount != 1 || acc.Balance.Pending != 25000 {
				t.Fatalf("inviter projection wrong: %+v", acc)
			}
		}
	}

	code, raw = doRequest(t, http.MethodGet, fmt.Sprintf("%s/accounts/%d", ts.URL, inviterID), nil, testToken)
	if code != http.StatusOK {
		t.Fatalf("account: code = %d, want 200", code)
	}

	var single struct {
		ChatID        int64 `json:"chatId"`
		ReferralCount int64 `json:"referralCount"`
	}
	if err := json.Unmarshal(raw, &single); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if single.ChatID != 1 || single.ReferralCount != 1 {
		t.Fatalf("single account projection wrong: %s", raw)
	}

	code, _ = doRequest(t, http.MethodGet, ts.URL+"/accounts/9999", nil, testToken)
	if code != http.StatusNotFound {
		t.Fatalf("missing account: code = %d, want 404", code)
	}

	code, raw = doRequest(t, http.MethodGet, fmt.Sprintf("%s/accounts/%d/purchases", ts.URL, buyerID), nil, testToken)
	if code != http.StatusOK {
		t.Fatalf("purchases: code = %d, want 200", code)
	}

	var pl struct {
		Purchases []struct {
			ExternalRef string `json:"externalRef"`
			Amount      int64  `json:"amount"`
		} `json:"purchases"`
	}
	if err := json.Unmarshal(raw, &pl); err != nil {
		t.Fatalf("decode purchases: %v", err)
	}
	if len(pl.Purchases) != 1 || pl.Purchases[0].ExternalRef != "order-1" || pl.Purchases[0].Amount != 500000 {
		t.Fatalf("purchases projection wrong: %s", raw)
	}

	code, raw = doRequest(t, http.MethodGet, ts.URL+"/export", nil, testToken)
	if code != http.StatusOK {
		t.Fatalf("export: code = %d, want 200", code)
	}

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 { // header + one accrual
		t.Fatalf("export lines = %d, want 2:\n%s", len(lines), raw)
	}
	if !strings.HasPrefix(lines[0], "entry_id,chat_id") {
		t.Fatalf("bad header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "referral_accrual") || !strings.Contains(lines[1], "25000") {
		t.Fatalf("bad row: %s", lines[1])
	}
}

func TestAPI_BadRequests(t *testing.T) {
	t.Parallel()

	ts, _, teardown := newTestServer(t)
	defer teardown()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{name: "purchase_empty_body", method: http.MethodPost, path: "/purchases", body: nil},
		{name: "purchase_zero_amount", method: http.MethodPost, path: "/purchases",
			body: map[string]any{"accountId": 1, "amount": 0}},
		{name: "purchase_unknown_field", method: http.MethodPost, path: "/purchases",
			body: map[string]any{"accountId": 1, "amount": 10, "bogus": true}},
		{name: "bad_account_path", method: http.MethodGet, path: "/accounts/abc/balance", body: nil},
		{name: "bad_history_limit", method: http.MethodGet, path: "/accounts/1/history?limit=-2", body: nil},
		{name: "reduce_zero", method: http.MethodPost, path: "/accounts/1/reduce",
			body: map[string]any{"amount": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, raw := doRequest(t, tt.method, ts.URL+tt.path, tt.body, testToken)
			if code != http.StatusBadRequest {
				t.Fatalf("code = %d (%s), want 400", code, raw)
			}
		})
	}
}

// Guards against the handlers hanging on body limits.
func TestAPI_TimeoutSanity(t *testing.T) {
	t.Parallel()

	ts, _, teardown := newTestServer(t)
	defer teardown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/healthz", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	_ = resp.Body.Close()
}
