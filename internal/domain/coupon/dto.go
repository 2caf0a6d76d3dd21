package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValidateRequest asks what a code would do to a price
type ValidateRequest struct {
	Code      string          `json:"code" validate:"required,max=64"`
	BasePrice decimal.Decimal `json:"base_price" validate:"decimal_gt0"`
}

// CreateRequest defines a new coupon (admin)
type CreateRequest struct {
	Code         string              `json:"code" validate:"required,min=3,max=64"`
	Description  string              `json:"description,omitempty" validate:"max=255"`
	DiscountType DiscountType        `json:"discount_type" validate:"required,discount_type"`
	Value        decimal.Decimal     `json:"value" validate:"decimal_gt0"`
	MinPurchase  decimal.NullDecimal `json:"min_purchase,omitempty"`
	MaxDiscount  decimal.NullDecimal `json:"max_discount,omitempty"`
	ExpiresAt    *time.Time          `json:"expires_at,omitempty"`
	UsageLimit   *int                `json:"usage_limit,omitempty" validate:"omitempty,gte=1"`
}
