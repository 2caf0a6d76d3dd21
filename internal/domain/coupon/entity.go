package coupon

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType of a coupon
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID           uuid.UUID           `db:"id" json:"id"`
	Code         string              `db:"code" json:"code"`
	Description  string              `db:"description" json:"description"`
	DiscountType DiscountType        `db:"discount_type" json:"discount_type"`
	Value        decimal.Decimal     `db:"value" json:"value"`
	MinPurchase  decimal.NullDecimal `db:"min_purchase" json:"min_purchase"`
	MaxDiscount  decimal.NullDecimal `db:"max_discount" json:"max_discount"`
	ExpiresAt    *time.Time          `db:"expires_at" json:"expires_at,omitempty"`
	UsageLimit   *int                `db:"usage_limit" json:"usage_limit,omitempty"`
	UsageCount   int                 `db:"usage_count" json:"usage_count"`
	IsActive     bool                `db:"is_active" json:"is_active"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
}

// Exhausted reports whether the usage limit has been reached.
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit
}

// Expired reports whether now is past the expiry.
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// redeemable is the condition Redeem enforces atomically.
func (c *Coupon) redeemable(now time.Time) bool {
	return c.IsActive && !c.Expired(now) && !c.Exhausted()
}

// Validation is the outcome of evaluating a code against a price.
type Validation struct {
	IsValid    bool            `json:"is_valid"`
	Coupon     *Coupon         `json:"coupon,omitempty"`
	Discount   decimal.Decimal `json:"discount"`
	FinalPrice decimal.Decimal `json:"final_price"`
	Message    string          `json:"message"`
}

// NormalizeCode makes codes case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
