package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts under /orders. Purchase and cancel go through the
// idempotency layer.
func (h *Handler) Routes(authMiddleware, idempotency func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.List)
	r.Get("/sales", h.Sales)
	r.Get("/{id}", h.Get)
	r.With(idempotency).Post("/", h.Purchase)
	r.With(idempotency).Post("/{id}/cancel", h.Cancel)

	return r
}

// AdminRoutes mounts under /admin/orders.
func (h *Handler) AdminRoutes(authMiddleware, adminMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(adminMiddleware)

	r.Get("/", h.Search)

	return r
}
