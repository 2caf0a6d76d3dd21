package wallet

import (
	"context"
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

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Get returns a wallet
// GET /wallets/{userId}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.targetUser(w, r)
	if !ok {
		return
	}

	wallet, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		errorhandler.InternalError(r.Context(), w, err)
		return
	}

	response.OK(w, wallet)
}

// Entries returns the wallet journal
// GET /wallets/{userId}/entries
func (h *Handler) Entries(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.targetUser(w, r)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	entries, total, err := h.svc.ListEntries(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		errorhandler.InternalError(r.Context(), w, err)
		return
	}

	response.WithMeta(w, entries, response.NewMeta(total, page, limit))
}

// Deposit tops up the caller's wallet
// POST /wallets/deposits
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, h.svc.Deposit)
}

// Withdraw pays out from the caller's wallet
// POST /wallets/withdrawals
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, h.svc.Withdraw)
}

func (h *Handler) targetUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return uuid.Nil, false
	}
	if !middleware.CanAccessUser(r.Context(), userID) {
		response.Forbidden(w, "cannot access another user's wallet")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *Handler) handleMutation(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, referenceID string) (*Wallet, error)) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req MutationRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.ValidationFailed(r.Context(), w, errs)
		return
	}

	wallet, err := fn(r.Context(), userID, req.Amount, req.ReferenceID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "amount must be greater than zero and reference_id is required")
		case errors.Is(err, ErrBelowMinWithdrawal):
			response.Unprocessable(w, "BELOW_MIN_WITHDRAWAL", err.Error())
		case errors.Is(err, ErrInsufficientFunds):
			response.PaymentRequired(w, "insufficient wallet balance", nil)
		case errors.Is(err, ErrReferenceConflict):
			response.Conflict(w, "reference_id already used with a different amount")
		default:
			errorhandler.InternalError(r.Context(), w, err)
		}
		return
	}

	response.OK(w, wallet)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/deposits", h.Deposit)
	r.Post("/withdrawals", h.Withdraw)
	r.Get("/{userId}", h.Get)
	r.Get("/{userId}/entries", h.Entries)
	return r
}
