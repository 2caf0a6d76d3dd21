package transaction

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/promptforge/marketplace-api/internal/middleware"
	"github.com/promptforge/marketplace-api/internal/pkg/errorhandler"
	"github.com/promptforge/marketplace-api/internal/pkg/response"
)

// Handler handles transaction history HTTP requests
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get returns one transaction; clients poll it after a timed-out purchase.
// GET /transactions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid transaction id")
		return
	}

	ctx := r.Context()
	t, err := h.service.Get(ctx, middleware.GetUserID(ctx), middleware.IsAdmin(ctx), id)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "transaction not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, err.Error())
	case err != nil:
		errorhandler.InternalError(ctx, w, err)
	default:
		response.OK(w, t)
	}
}

// List returns the caller's purchases (role=buyer, default) or sales (role=seller)
// GET /transactions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var status *Status
	if raw := q.Get("status"); raw != "" {
		s := Status(raw)
		if !s.Valid() {
			response.BadRequest(w, "invalid status filter")
			return
		}
		status = &s
	}

	var (
		items []Transaction
		total int
		err   error
	)
	switch q.Get("role") {
	case "", "buyer":
		items, total, err = h.service.ListForBuyer(ctx, userID, status, limit, (page-1)*limit)
	case "seller":
		items, total, err = h.service.ListForSeller(ctx, userID, status, limit, (page-1)*limit)
	default:
		response.BadRequest(w, "role must be buyer or seller")
		return
	}
	if err != nil {
		errorhandler.InternalError(ctx, w, err)
		return
	}

	response.WithMeta(w, items, response.NewMeta(total, page, limit))
}

// Routes returns the transaction router. refund is served by the purchase flow.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler, refund http.HandlerFunc) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	if refund != nil {
		r.Post("/{id}/refund", refund)
	}

	return r
}
