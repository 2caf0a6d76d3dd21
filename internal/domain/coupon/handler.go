package coupon

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/promptforge/marketplace-api/internal/middleware"
	"github.com/promptforge/marketplace-api/internal/pkg/errorhandler"
	"github.com/promptforge/marketplace-api/internal/pkg/response"
	"github.com/promptforge/marketplace-api/internal/pkg/validator"
)

// Handler handles coupon HTTP requests
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Validate previews a coupon against a price
// POST /coupons/validate
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.ValidationFailed(r.Context(), w, errs)
		return
	}

	v, err := h.service.Validate(r.Context(), req.Code, req.BasePrice)
	if err != nil {
		errorhandler.InternalError(r.Context(), w, err)
		return
	}

	response.OK(w, v)
}

// Create defines a coupon
// POST /coupons
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.ValidationFailed(r.Context(), w, errs)
		return
	}

	c, err := h.service.Create(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateCode):
			response.Conflict(w, err.Error())
		case errors.Is(err, ErrInvalidCoupon):
			response.ValidationError(w, map[string]string{"value": err.Error()})
		default:
			errorhandler.InternalError(r.Context(), w, err)
		}
		return
	}

	response.Created(w, c)
}

// List returns all coupons
// GET /coupons
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		errorhandler.InternalError(r.Context(), w, err)
		return
	}
	response.OK(w, items)
}

// Routes returns coupon router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/validate", h.Validate)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin())

		r.Get("/", h.List)
		r.Post("/", h.Create)
	})

	return r
}
