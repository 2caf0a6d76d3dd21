package coupon

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/pkg/money"
)

const (
	msgUnknown   = "Invalid coupon code"
	msgInactive  = "Coupon is no longer active"
	msgExpired   = "Coupon has expired"
	msgExhausted = "Coupon usage limit reached"
	msgApplied   = "Coupon applied successfully!"
)

var hundred = decimal.NewFromInt(100)

func rejected(base decimal.Decimal, message string) Validation {
	return Validation{
		IsValid:    false,
		Discount:   decimal.Zero,
		FinalPrice: base,
		Message:    message,
	}
}

// Evaluate applies c to base at time now. It never mutates c. A nil coupon
// evaluates as an unknown code.
func Evaluate(c *Coupon, base decimal.Decimal, now time.Time, rounding money.Rounding) Validation {
	switch {
	case c == nil:
		return rejected(base, msgUnknown)
	case !c.IsActive:
		return rejected(base, msgInactive)
	case c.Expired(now):
		return rejected(base, msgExpired)
	case c.Exhausted():
		return rejected(base, msgExhausted)
	case c.MinPurchase.Valid && base.LessThan(c.MinPurchase.Decimal):
		return rejected(base, fmt.Sprintf("Minimum purchase of %s required", c.MinPurchase.Decimal.StringFixed(rounding.Scale)))
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		discount = base.Mul(c.Value).Div(hundred)
	case DiscountFixed:
		discount = decimal.Min(c.Value, base)
	default:
		return rejected(base, msgUnknown)
	}
	if c.MaxDiscount.Valid {
		discount = decimal.Min(discount, c.MaxDiscount.Decimal)
	}

	final := rounding.Apply(money.FloorZero(base.Sub(discount)))
	return Validation{
		IsValid:    true,
		Coupon:     c,
		Discount:   base.Sub(final),
		FinalPrice: final,
		Message:    msgApplied,
	}
}
