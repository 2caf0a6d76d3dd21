package listing

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/middleware"
	"github.com/promptforge/marketplace-api/internal/pkg/errorhandler"
	"github.com/promptforge/marketplace-api/internal/pkg/response"
	"github.com/promptforge/marketplace-api/internal/pkg/validator"
)

// Handler handles listing HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates listing handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Browse returns active listings
// GET /listings?min_price=&max_price=&seller_id=&sort_by=&page=&limit=
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := pagination(r)

	f := Filter{
		SortBy: SortBy(q.Get("sort_by")),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if err := validator.ValidateVar(q.Get("sort_by"), "sort_by"); err != nil {
		response.BadRequest(w, "invalid sort_by")
		return
	}
	if raw := q.Get("seller_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "invalid seller_id")
			return
		}
		f.SellerID = &id
	}
	for param, dst := range map[string]**decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		if raw := q.Get(param); raw != "" {
			v, err := decimal.NewFromString(raw)
			if err != nil {
				response.BadRequest(w, "invalid "+param)
				return
			}
			*dst = &v
		}
	}

	items, total, err := h.service.Browse(r.Context(), f)
	if err != nil {
		errorhandler.InternalError(r.Context(), w, err)
		return
	}

	response.WithMeta(w, items, response.NewMeta(total, page, limit))
}

// Get returns a listing by ID
// GET /listings/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid listing id")
		return
	}

	l, err := h.service.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, "listing not found")
		return
	}
	if err != nil {
		errorhandler.InternalError(r.Context(), w, err)
		return
	}

	response.OK(w, l)
}

// Create lists a prompt for the caller
// POST /listings
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	sellerID := middleware.GetUserID(r.Context())
	if sellerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.ValidationFailed(r.Context(), w, errs)
		return
	}

	l, err := h.service.Create(r.Context(), sellerID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPrice):
			response.ValidationError(w, map[string]string{"price": err.Error()})
		case errors.Is(err, ErrDuplicateItem):
			response.Conflict(w, err.Error())
		default:
			errorhandler.InternalError(r.Context(), w, err)
		}
		return
	}

	response.Created(w, l)
}

// Update changes price, title or availability
// PATCH /listings/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid listing id")
		return
	}

	var req UpdateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.ValidationFailed(r.Context(), w, errs)
		return
	}

	l, err := h.service.Update(r.Context(), middleware.GetUserID(r.Context()), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "listing not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrInvalidPrice):
			response.ValidationError(w, map[string]string{"price": err.Error()})
		default:
			errorhandler.InternalError(r.Context(), w, err)
		}
		return
	}

	response.OK(w, l)
}

// BySeller returns all listings of a seller
// GET /sellers/{id}/listings
func (h *Handler) BySeller(w http.ResponseWriter, r *http.Request) {
	sellerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid seller id")
		return
	}
	page, limit := pagination(r)

	items, total, err := h.service.ListBySeller(r.Context(), sellerID, limit, (page-1)*limit)
	if err != nil {
		errorhandler.InternalError(r.Context(), w, err)
		return
	}

	response.WithMeta(w, items, response.NewMeta(total, page, limit))
}

func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
