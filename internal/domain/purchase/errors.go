package purchase

import (
	"errors"

	"github.com/promptforge/marketplace-api/internal/domain/transaction"
)

var (
	ErrListingNotFound        = errors.New("listing not found")
	ErrInvalidBuyer           = errors.New("sellers cannot buy their own listing")
	ErrAlreadyPurchased       = errors.New("prompt already purchased")
	ErrInsufficientFunds      = errors.New("insufficient wallet balance")
	ErrCouponInvalid          = errors.New("coupon is not valid")
	ErrInvalidPaymentMethod   = errors.New("unsupported payment method")
	ErrCurrencyMismatch       = errors.New("listing currency differs from wallet currency")
	ErrPaymentDeclined        = errors.New("payment was declined")
	ErrSettlementFailure      = errors.New("purchase could not be settled")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrRefundNotAllowed       = errors.New("transaction cannot be refunded")
	ErrForbidden              = errors.New("not allowed to refund this transaction")
	ErrRequestInProgress      = errors.New("a request with this idempotency key is still in progress")
	ErrSellerFundsUnavailable = errors.New("seller balance does not cover the refund")
	ErrInvalidLicenseType     = errors.New("license type must be personal or commercial")
)

// CouponError reports why a coupon was rejected. It matches ErrCouponInvalid.
type CouponError struct {
	Message string
}

func (e *CouponError) Error() string {
	return "coupon invalid: " + e.Message
}

func (e *CouponError) Unwrap() error {
	return ErrCouponInvalid
}

// FailedPurchaseError is returned once a transaction was persisted and then
// marked failed. Transaction is the failed record.
type FailedPurchaseError struct {
	Transaction *transaction.Transaction
	Err         error
}

func (e *FailedPurchaseError) Error() string {
	return e.Err.Error()
}

func (e *FailedPurchaseError) Unwrap() error {
	return e.Err
}
