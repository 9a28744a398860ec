package wallet

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts under /wallet. Top-ups go through the idempotency layer.
func (h *Handler) Routes(authMiddleware, idempotency func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/balance", h.Balance)
	r.Get("/summary", h.Summary)
	r.Get("/transactions", h.Transactions)
	r.Get("/check-balance", h.CheckBalance)
	r.With(idempotency).Post("/topup", h.TopUp)

	return r
}
