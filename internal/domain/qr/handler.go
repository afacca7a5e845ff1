package qr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/booksexchange/booksexchange-api/internal/domain/book"
	"github.com/booksexchange/booksexchange-api/internal/middleware"
	"github.com/booksexchange/booksexchange-api/internal/pkg/response"
	"github.com/booksexchange/booksexchange-api/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Scan handles POST /qr/scan
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	h.resolve(w, r, req.Code)
}

// ScanByCode handles GET /qr/scan/{code} — convenience for bare ids.
func (h *Handler) ScanByCode(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, chi.URLParam(r, "code"))
}

// AddHistory handles POST /qr/scan/{code}/history
func (h *Handler) AddHistory(w http.ResponseWriter, r *http.Request) {
	var req book.AppendHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	userID := middleware.GetUserID(r.Context())
	entry, err := h.service.AppendHistory(r.Context(), userID, chi.URLParam(r, "code"), &req)
	if err != nil {
		switch {
		case errors.Is(err, book.ErrBookNotFound):
			response.NotFound(w, "No book matches this code")
		case errors.Is(err, book.ErrInvalidAction):
			response.BadRequest(w, "Action must be one of: read, exchanged, listed")
		case errors.Is(err, book.ErrInvalidPeriod):
			response.BadRequest(w, "Reading period ends before it starts")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, entry)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, code string) {
	b, history, err := h.service.Resolve(r.Context(), code)
	if err != nil {
		if errors.Is(err, book.ErrBookNotFound) {
			response.NotFound(w, "No book matches this code")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, ScanResponse{
		Book:    b,
		History: history,
		ScanURL: h.service.ScanURL(b),
	})
}
