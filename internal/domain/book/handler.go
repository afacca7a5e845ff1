package book

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/booksexchange/booksexchange-api/internal/middleware"
	"github.com/booksexchange/booksexchange-api/internal/pkg/response"
	"github.com/booksexchange/booksexchange-api/internal/pkg/storage"
	"github.com/booksexchange/booksexchange-api/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /books
// @Summary Register a book listing
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBookRequest true "Book attributes"
// @Success 201 {object} response.Response{data=Book}
// @Failure 400,409,422,500 {object} response.Response
// @Router /books [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	userID := middleware.GetUserID(r.Context())
	b, err := h.service.Register(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCondition):
			response.BadRequest(w, "Condition must be one of: excellent, good, fair, poor")
		case errors.Is(err, ErrDuplicateListing):
			response.Conflict(w, "You already listed this book. Each physical book has one digital identity.")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, b)
}

// List handles GET /books
// @Summary Browse book listings
// @Tags Books
// @Produce json
// @Param q query string false "Search in title and author"
// @Param author query string false "Filter by author"
// @Param condition query string false "Filter by condition"
// @Param min_points query int false "Minimum point value"
// @Param max_points query int false "Maximum point value"
// @Param location query string false "Filter by location"
// @Param available_only query bool false "Only available books"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Response{data=[]Book}
// @Router /books [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := &Filter{AvailableOnly: true}

	if q := query.Get("q"); q != "" {
		filter.Query = &q
	}
	if a := query.Get("author"); a != "" {
		filter.Author = &a
	}
	if c := query.Get("condition"); c != "" {
		cond := Condition(c)
		if !cond.Valid() {
			response.BadRequest(w, "Invalid condition filter")
			return
		}
		filter.Condition = &cond
	}
	if v := query.Get("min_points"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.MinPoints = &n
		}
	}
	if v := query.Get("max_points"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.MaxPoints = &n
		}
	}
	if l := query.Get("location"); l != "" {
		filter.Location = &l
	}
	if v := query.Get("available_only"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filter.AvailableOnly = b
		}
	}

	pagination := parsePagination(query.Get("page"), query.Get("page_size"))
	books, total, err := h.service.List(r.Context(), filter, pagination)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, books, response.NewMeta(total, pagination.Page, pagination.Limit))
}

// ListMy handles GET /books/my
// @Summary List my book listings
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]Book}
// @Router /books/my [get]
func (h *Handler) ListMy(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	query := r.URL.Query()
	pagination := parsePagination(query.Get("page"), query.Get("page_size"))
	books, total, err := h.service.ListByOwner(r.Context(), userID, pagination)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, books, response.NewMeta(total, pagination.Page, pagination.Limit))
}

// GetByID handles GET /books/{id}
// @Summary Get a book by row id or permanent id
// @Tags Books
// @Produce json
// @Param id path string true "Book id or permanent id"
// @Success 200 {object} response.Response{data=Book}
// @Failure 400,404 {object} response.Response
// @Router /books/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid book ID")
		return
	}

	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			response.NotFound(w, "Book not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, b)
}

// Delete handles DELETE /books/{id}
// @Summary Retire a book listing
// @Tags Books
// @Security BearerAuth
// @Param id path string true "Book ID"
// @Success 204 "No Content"
// @Failure 400,403,404,409 {object} response.Response
// @Router /books/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid book ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		switch {
		case errors.Is(err, ErrBookNotFound):
			response.NotFound(w, "Book not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(w, "You can only delete your own books")
		case errors.Is(err, ErrBookBusy):
			response.Conflict(w, "Book has an unresolved exchange request")
		case errors.Is(err, ErrHasHistory):
			response.Conflict(w, "Book has completed exchanges; its history must be preserved")
		default:
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

// Valuation handles GET /books/{id}/valuation
// @Summary Suggested point value for a book
// @Tags Books
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} response.Response{data=ValuationResponse}
// @Failure 400,404 {object} response.Response
// @Router /books/{id}/valuation [get]
func (h *Handler) Valuation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid book ID")
		return
	}

	valuation, err := h.service.SuggestedValue(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			response.NotFound(w, "Book not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, valuation)
}

// History handles GET /books/{id}/history
// @Summary Book reading history, newest first
// @Tags Books
// @Produce json
// @Param id path string true "Book id or permanent id"
// @Success 200 {object} response.Response{data=HistoryResponse}
// @Failure 400,404 {object} response.Response
// @Router /books/{id}/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid book ID")
		return
	}

	b, entries, err := h.service.History(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			response.NotFound(w, "Book not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, HistoryResponse{Book: b, History: entries})
}

// AddHistory handles POST /books/{id}/history
// @Summary Append a history entry
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Book id or permanent id"
// @Param request body AppendHistoryRequest true "History entry"
// @Success 201 {object} response.Response{data=HistoryEntry}
// @Failure 400,404,422 {object} response.Response
// @Router /books/{id}/history [post]
func (h *Handler) AddHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid book ID")
		return
	}

	var req AppendHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	userID := middleware.GetUserID(r.Context())
	entry, err := h.service.AppendHistory(r.Context(), userID, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrBookNotFound):
			response.NotFound(w, "Book not found")
		case errors.Is(err, ErrInvalidAction):
			response.BadRequest(w, "Action must be one of: read, exchanged, listed")
		case errors.Is(err, ErrInvalidPeriod):
			response.BadRequest(w, "Reading period ends before it starts")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, entry)
}

// UploadCover handles POST /books/{id}/cover
// Multipart form: file
func (h *Handler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid book ID")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxCoverSize)
	if err := r.ParseMultipartForm(storage.MaxCoverSize); err != nil {
		response.BadRequest(w, "File too large or invalid form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "No file provided")
		return
	}
	defer file.Close()

	userID := middleware.GetUserID(r.Context())
	b, err := h.service.UploadCover(r.Context(), userID, id, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrBookNotFound):
			response.NotFound(w, "Book not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(w, "You can only upload covers for your own books")
		case errors.Is(err, storage.ErrFileTooLarge):
			response.BadRequest(w, "File exceeds maximum size")
		case errors.Is(err, storage.ErrInvalidMimeType):
			response.BadRequest(w, "File type not allowed")
		case errors.Is(err, storage.ErrEmptyFile):
			response.BadRequest(w, "File is empty")
		case errors.Is(err, ErrUnreadableCover):
			response.BadRequest(w, "Image data could not be decoded")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, b)
}

func parsePagination(pageStr, sizeStr string) *Pagination {
	page := 1
	limit := 20
	if pageStr != "" {
		if v, err := strconv.Atoi(pageStr); err == nil && v > 0 {
			page = v
		}
	}
	if sizeStr != "" {
		if v, err := strconv.Atoi(sizeStr); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	return &Pagination{Page: page, Limit: limit}
}
