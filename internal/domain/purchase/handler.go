package purchase

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/promptforge/marketplace-api/internal/middleware"
	"github.com/promptforge/marketplace-api/internal/pkg/errorhandler"
	"github.com/promptforge/marketplace-api/internal/pkg/response"
	"github.com/promptforge/marketplace-api/internal/pkg/validator"
)

// IdempotencyHeader carries the client's retry key
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Purchase buys a listing
// POST /purchases
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	buyerID := middleware.GetUserID(ctx)
	if buyerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if len(key) > maxIdempotencyKeyLength {
		response.BadRequest(w, "Idempotency-Key is too long")
		return
	}

	var req Request
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.ValidationFailed(ctx, w, errs)
		return
	}

	result, err := h.service.Purchase(ctx, buyerID, &req, key)
	if err != nil {
		h.purchaseError(w, r, err)
		return
	}

	if result.Replayed {
		response.OK(w, result.Transaction)
		return
	}
	response.Created(w, result.Transaction)
}

func (h *Handler) purchaseError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	details := map[string]string{}
	var failed *FailedPurchaseError
	if errors.As(err, &failed) {
		details["transaction_id"] = failed.Transaction.ID.String()
		details["status"] = string(failed.Transaction.Status)
	}

	var couponErr *CouponError
	switch {
	case errors.As(err, &couponErr):
		response.ErrorWithDetails(w, http.StatusUnprocessableEntity, "COUPON_INVALID", couponErr.Message, nil)
	case errors.Is(err, ErrListingNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrInvalidBuyer):
		response.Unprocessable(w, "INVALID_BUYER", err.Error())
	case errors.Is(err, ErrInvalidPaymentMethod):
		response.Unprocessable(w, "INVALID_PAYMENT_METHOD", err.Error())
	case errors.Is(err, ErrCurrencyMismatch):
		response.Unprocessable(w, "CURRENCY_MISMATCH", err.Error())
	case errors.Is(err, ErrInvalidLicenseType):
		response.Unprocessable(w, "INVALID_LICENSE_TYPE", err.Error())
	case errors.Is(err, ErrAlreadyPurchased):
		response.ErrorWithDetails(w, http.StatusConflict, "ALREADY_PURCHASED", err.Error(), details)
	case errors.Is(err, ErrRequestInProgress):
		response.ErrorWithDetails(w, http.StatusConflict, "REQUEST_IN_PROGRESS", err.Error(), nil)
	case errors.Is(err, ErrInsufficientFunds):
		response.PaymentRequired(w, err.Error(), details)
	case errors.Is(err, ErrPaymentDeclined):
		response.ErrorWithDetails(w, http.StatusPaymentRequired, "PAYMENT_DECLINED", err.Error(), details)
	case errors.Is(err, ErrSettlementFailure):
		errorhandler.HandleErrorWithDetails(ctx, w, http.StatusInternalServerError, "SETTLEMENT_FAILURE",
			"purchase could not be completed and was rolled back", details, err)
	default:
		errorhandler.InternalError(ctx, w, err)
	}
}

// Refund reverses a completed purchase
// POST /transactions/{id}/refund
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID := middleware.GetUserID(ctx)
	if actorID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid transaction id")
		return
	}

	txn, err := h.service.Refund(ctx, actorID, middleware.IsAdmin(ctx), id)
	switch {
	case errors.Is(err, ErrTransactionNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrRefundNotAllowed):
		response.ErrorWithDetails(w, http.StatusConflict, "REFUND_NOT_ALLOWED", err.Error(), nil)
	case errors.Is(err, ErrSellerFundsUnavailable):
		response.ErrorWithDetails(w, http.StatusConflict, "SELLER_FUNDS_UNAVAILABLE", err.Error(), nil)
	case errors.Is(err, ErrSettlementFailure):
		errorhandler.HandleError(ctx, w, http.StatusInternalServerError, "SETTLEMENT_FAILURE",
			"refund could not be completed and was rolled back", err)
	case err != nil:
		errorhandler.InternalError(ctx, w, err)
	default:
		response.OK(w, txn)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Purchase)
	return r
}
