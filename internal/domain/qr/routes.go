package qr

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns qr router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public routes
	r.Post("/scan", h.Scan)
	r.Get("/scan/{code}", h.ScanByCode)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/scan/{code}/history", h.AddHistory)
	})

	return r
}
