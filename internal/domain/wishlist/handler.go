package wishlist

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/booksexchange/booksexchange-api/internal/domain/book"
	"github.com/booksexchange/booksexchange-api/internal/middleware"
	"github.com/booksexchange/booksexchange-api/internal/pkg/response"
)

// Handler handles wishlist HTTP requests
type Handler struct {
	repo *Repository
}

// NewHandler creates wishlist handler
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Add handles POST /books/{id}/wishlist
// @Summary Add a book to the wishlist
// @Tags Wishlist
// @Produce json
// @Security BearerAuth
// @Param id path string true "Book ID"
// @Success 201 {object} response.Response{data=Item}
// @Failure 400,401,404,409 {object} response.Response
// @Router /books/{id}/wishlist [post]
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid book ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	item, err := h.repo.Add(r.Context(), userID, bookID)
	if err != nil {
		switch {
		case errors.Is(err, book.ErrBookNotFound):
			response.NotFound(w, "Book not found")
		case errors.Is(err, ErrOwnBook):
			response.BadRequest(w, "You already own this book")
		case errors.Is(err, ErrAlreadyWishlisted):
			response.Conflict(w, "Book is already in your wishlist")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, item)
}

// Remove handles DELETE /books/{id}/wishlist
// @Summary Remove a book from the wishlist
// @Tags Wishlist
// @Produce json
// @Security BearerAuth
// @Param id path string true "Book ID"
// @Success 204 "No Content"
// @Failure 400,401,404 {object} response.Response
// @Router /books/{id}/wishlist [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid book ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.repo.Remove(r.Context(), userID, bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.NotFound(w, "Book not in your wishlist")
			return
		}
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}

// ListMine handles GET /wishlist
// @Summary List my wishlist
// @Tags Wishlist
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Response{data=[]WishedBook}
// @Failure 401,500 {object} response.Response
// @Router /wishlist [get]
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	query := r.URL.Query()
	page := 1
	limit := 20
	if p := query.Get("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if l := query.Get("page_size"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	items, total, err := h.repo.ListMine(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, items, response.NewMeta(total, page, limit))
}

// Routes returns wishlist routes
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.ListMine)

	return r
}
