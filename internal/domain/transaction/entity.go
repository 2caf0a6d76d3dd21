package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of a purchase in the transaction log
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusFailed || s == StatusRefunded
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal move of the state machine.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted:
		return to == StatusRefunded
	}
	return false
}

// PaymentMethod used to fund a purchase
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentPayPal     PaymentMethod = "paypal"
	PaymentWallet     PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCreditCard, PaymentPayPal, PaymentWallet:
		return true
	}
	return false
}

// Transaction is one purchase attempt. Rows are never deleted.
type Transaction struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	BuyerID        uuid.UUID       `db:"buyer_id" json:"buyer_id"`
	SellerID       uuid.UUID       `db:"seller_id" json:"seller_id"`
	ListingID      uuid.UUID       `db:"listing_id" json:"listing_id"`
	ItemID         string          `db:"item_id" json:"item_id"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	OriginalAmount decimal.Decimal `db:"original_amount" json:"original_amount"`
	Discount       decimal.Decimal `db:"discount" json:"discount"`
	CouponCode     *string         `db:"coupon_code" json:"coupon_code,omitempty"`
	Currency       string          `db:"currency" json:"currency"`
	Status         Status          `db:"status" json:"status"`
	PaymentMethod  PaymentMethod   `db:"payment_method" json:"payment_method"`
	LicenseType    string          `db:"license_type" json:"license_type"`
	IdempotencyKey *string         `db:"idempotency_key" json:"-"`
	FailureReason  *string         `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	RefundedAt     *time.Time      `db:"refunded_at" json:"refunded_at,omitempty"`

	// Set while a refund is being unwound. Status stays completed until the
	// refund finishes; the claim is dropped again if it fails.
	RefundAttemptID *uuid.UUID `db:"refund_attempt_id" json:"-"`
	RefundStartedAt *time.Time `db:"refund_started_at" json:"refund_started_at,omitempty"`
}

// CanView reports whether userID is a party to the transaction.
func (t *Transaction) CanView(userID uuid.UUID) bool {
	return t.BuyerID == userID || t.SellerID == userID
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	Status   *Status
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

func (f Filter) matches(t *Transaction) bool {
	if f.BuyerID != nil && t.BuyerID != *f.BuyerID {
		return false
	}
	if f.SellerID != nil && t.SellerID != *f.SellerID {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.From != nil && t.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !t.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}
