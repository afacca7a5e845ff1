package exchange

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns exchanges router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Create)
	r.Get("/my", h.ListMine)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reject", h.Reject)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/dispute", h.Dispute)

	return r
}
