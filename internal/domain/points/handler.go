package points

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/booksexchange/booksexchange-api/internal/middleware"
	"github.com/booksexchange/booksexchange-api/internal/pkg/gateway"
	"github.com/booksexchange/booksexchange-api/internal/pkg/response"
	"github.com/booksexchange/booksexchange-api/internal/pkg/validator"
)

type Handler struct {
	svc           *Service
	gatewaySecret string
}

func NewHandler(svc *Service, gatewaySecret string) *Handler {
	return &Handler{svc: svc, gatewaySecret: gatewaySecret}
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.svc.Balance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"balance": balance})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	stats, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, stats)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	page := 1
	limit := 20
	query := r.URL.Query()
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

	filter := Filter{}
	if v := query.Get("reason"); v != "" {
		reason := Reason(v)
		if !reason.Valid() {
			response.BadRequest(w, "unknown reason filter")
			return
		}
		filter.Reason = &reason
	}

	items, total, err := h.svc.Transactions(r.Context(), userID, filter, Pagination{Page: page, Limit: limit})
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, items, response.NewMeta(total, page, limit))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	txID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid transaction id")
		return
	}

	tx, err := h.svc.Transaction(r.Context(), userID, txID)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			response.NotFound(w, "transaction not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, tx)
}

// Purchase records a top-up confirmed by the payment gateway. The request
// must carry a valid gateway signature; purchase credits are accepted from
// no other caller.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	signature := r.Header.Get("X-Gateway-Signature")
	if !gateway.VerifyPurchase(h.gatewaySecret, userID, req.Points, req.Reference, signature) {
		response.Forbidden(w, "invalid gateway signature")
		return
	}

	result, err := h.svc.RecordPurchase(r.Context(), userID, req.Points, req.Reference)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "points must be greater than zero and reference is required")
		case errors.Is(err, ErrReferenceConflict):
			response.Conflict(w, "reference already used with a different amount")
		default:
			response.InternalError(w)
		}
		return
	}

	if result.Applied {
		response.Created(w, result)
		return
	}
	response.OK(w, result)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/balance", h.Balance)
	r.Get("/stats", h.Stats)
	r.Get("/transactions", h.List)
	r.Get("/transactions/{id}", h.Get)
	r.Post("/purchase", h.Purchase)
	return r
}
