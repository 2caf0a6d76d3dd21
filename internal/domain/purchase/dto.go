package purchase

import (
	"github.com/google/uuid"

	"github.com/promptforge/marketplace-api/internal/domain/transaction"
)

// Request is the body of POST /purchases
type Request struct {
	ListingID     uuid.UUID `json:"listing_id" validate:"required"`
	PaymentMethod string    `json:"payment_method" validate:"required,payment_method"`
	CouponCode    *string   `json:"coupon_code,omitempty" validate:"omitempty,max=64"`
	// LicenseType defaults to personal.
	LicenseType   string    `json:"license_type,omitempty" validate:"omitempty,oneof=personal commercial"`
}

// Result of a purchase. Replayed is true when the transaction was produced by
// an earlier request carrying the same idempotency key.
type Result struct {
	Transaction *transaction.Transaction
	Replayed    bool
}
