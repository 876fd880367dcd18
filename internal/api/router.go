package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/refbali/referralbot/internal/services/bonus"
	"github.com/refbali/referralbot/internal/services/referral"
)

// Services bundles what the handlers call into.
type Services struct {
	Bonus    *bonus.Service
	Referral *referral.Service
}

// NewRouter registers all endpoints. Everything except the health check
// sits behind the admin bearer token: purchase ingest comes from the
// shop backend, the rest is the admin panel.
func NewRouter(adminToken string, svcs Services) http.Handler {
	h := NewHandler(svcs)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireBearerToken(adminToken))

		r.Post("/purchases", h.CreatePurchaseHandler)

		r.Get("/accounts", h.ListAccountsHandler)
		r.Get("/accounts/{accountID}", h.GetAccountHandler)
		r.Get("/accounts/{accountID}/balance", h.GetBalanceHandler)
		r.Get("/accounts/{accountID}/purchases", h.ListPurchasesHandler)
		r.Get("/accounts/{accountID}/history", h.GetHistoryHandler)
		r.Post("/accounts/{accountID}/payout", h.PayOutHandler)
		r.Post("/accounts/{accountID}/forfeit", h.ForfeitHandler)
		r.Post("/accounts/{accountID}/reduce", h.ReduceHandler)

		r.Get("/export", h.ExportHandler)
	})

	return r
}
