package book

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns books router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public routes
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Get("/{id}/valuation", h.Valuation)
	r.Get("/{id}/history", h.History)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Get("/my", h.ListMy)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/cover", h.UploadCover)
		r.Post("/{id}/history", h.AddHistory)
	})

	return r
}
