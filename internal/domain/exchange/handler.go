package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/booksexchange/booksexchange-api/internal/domain/book"
	"github.com/booksexchange/booksexchange-api/internal/domain/points"
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

// Create handles POST /exchanges
// @Summary Request a book exchange
// @Tags Exchanges
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateExchangeRequest true "Exchange request data"
// @Success 201 {object} response.Response{data=Request}
// @Failure 400,404,422,500,503 {object} response.Response
// @Router /exchanges [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, result)
}

// ListMine handles GET /exchanges/my
// @Summary List my exchange requests
// @Tags Exchanges
// @Produce json
// @Security BearerAuth
// @Param role query string false "Filter by side: sent or received"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Response{data=[]Request}
// @Router /exchanges/my [get]
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	query := r.URL.Query()
	filter := &Filter{Role: query.Get("role")}

	if s := query.Get("status"); s != "" {
		status := Status(s)
		if !status.Valid() {
			response.BadRequest(w, "Invalid status filter")
			return
		}
		filter.Status = &status
	}

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

	requests, total, err := h.service.ListMine(r.Context(), userID, filter, &Pagination{Page: page, Limit: limit})
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, requests, response.NewMeta(total, page, limit))
}

// Get handles GET /exchanges/{id}
// @Summary Get exchange request details
// @Tags Exchanges
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exchange request ID"
// @Success 200 {object} response.Response{data=Request}
// @Failure 400,404,500 {object} response.Response
// @Router /exchanges/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid exchange request ID")
		return
	}

	result, err := h.service.Get(r.Context(), userID, requestID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, result)
}

// Approve handles POST /exchanges/{id}/approve
// @Summary Approve an exchange request
// @Tags Exchanges
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exchange request ID"
// @Success 200 {object} response.Response{data=Request}
// @Failure 400,403,404,409,500,503 {object} response.Response
// @Router /exchanges/{id}/approve [post]
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.Approve)
}

// Reject handles POST /exchanges/{id}/reject
// @Summary Reject an exchange request
// @Tags Exchanges
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exchange request ID"
// @Success 200 {object} response.Response{data=Request}
// @Failure 400,403,404,409,500,503 {object} response.Response
// @Router /exchanges/{id}/reject [post]
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.Reject)
}

// Cancel handles POST /exchanges/{id}/cancel
// @Summary Cancel my exchange request
// @Tags Exchanges
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exchange request ID"
// @Success 200 {object} response.Response{data=Request}
// @Failure 400,403,404,409,500,503 {object} response.Response
// @Router /exchanges/{id}/cancel [post]
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.Cancel)
}

// act runs an owner/requester action that takes (userID, requestID)
func (h *Handler) act(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, requestID uuid.UUID) (*Request, error)) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid exchange request ID")
		return
	}

	result, err := fn(r.Context(), userID, requestID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, result)
}

// Dispute handles POST /exchanges/{id}/dispute
// @Summary Dispute a completed exchange
// @Tags Exchanges
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exchange request ID"
// @Param request body DisputeRequest true "Dispute data"
// @Success 201 {object} response.Response{data=Dispute}
// @Failure 400,403,404,409,422,500 {object} response.Response
// @Router /exchanges/{id}/dispute [post]
func (h *Handler) Dispute(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid exchange request ID")
		return
	}

	var req DisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	d, err := h.service.Dispute(r.Context(), userID, requestID, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, d)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRequestNotFound):
		response.NotFound(w, "Exchange request not found")
	case errors.Is(err, book.ErrBookNotFound):
		response.NotFound(w, "Book not found")
	case errors.Is(err, ErrSelfRequest):
		response.BadRequest(w, "You cannot request your own book")
	case errors.Is(err, ErrBookUnavailable):
		response.BadRequest(w, "Book is not available for exchange")
	case errors.Is(err, points.ErrInsufficientPoints):
		response.BadRequest(w, "Not enough points for this exchange")
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(w, "Only the book owner can do this")
	case errors.Is(err, ErrNotRequester):
		response.Forbidden(w, "Only the requester can cancel")
	case errors.Is(err, ErrNotParty):
		response.Forbidden(w, "You are not a party to this exchange")
	case errors.Is(err, ErrAlreadyResolved):
		response.Conflict(w, "Exchange request is already resolved")
	case errors.Is(err, ErrCircularExchange):
		response.Conflict(w, "Approval would close a circular exchange chain")
	case errors.Is(err, ErrNotCompleted):
		response.Conflict(w, "Only completed exchanges can be disputed")
	case errors.Is(err, ErrDisputeExists):
		response.Conflict(w, "A dispute already exists for this exchange")
	case errors.Is(err, book.ErrOwnershipMismatch):
		response.Conflict(w, "Book ownership changed, refresh and retry")
	case errors.Is(err, ErrBusy):
		response.ServiceUnavailable(w, "Exchange is busy, try again")
	default:
		response.InternalError(w)
	}
}
