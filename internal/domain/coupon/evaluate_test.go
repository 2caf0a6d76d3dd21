package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/pkg/money"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(v int) *int { return &v }

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	rounding := money.DefaultRounding()

	cases := []struct {
		name      string
		coupon    *Coupon
		base      string
		wantValid bool
		wantFinal string
		wantDisc  string
		wantMsg   string
	}{
		{
			name:      "unknown code",
			base:      "29.99",
			wantFinal: "29.99", wantDisc: "0", wantMsg: msgUnknown,
		},
		{
			name:      "percentage truncates to cents",
			coupon:    &Coupon{Code: "SAVE10", DiscountType: DiscountPercentage, Value: dec("10"), IsActive: true},
			base:      "29.99",
			wantValid: true, wantFinal: "26.99", wantDisc: "3", wantMsg: msgApplied,
		},
		{
			name:      "fixed",
			coupon:    &Coupon{Code: "FIRST5", DiscountType: DiscountFixed, Value: dec("5"), IsActive: true},
			base:      "29.99",
			wantValid: true, wantFinal: "24.99", wantDisc: "5",
			wantMsg: msgApplied,
		},
		{
			name:      "fixed larger than price floors at zero",
			coupon:    &Coupon{Code: "BIG", DiscountType: DiscountFixed, Value: dec("50"), IsActive: true},
			base:      "29.99",
			wantValid: true, wantFinal: "0", wantDisc: "29.99", wantMsg: msgApplied,
		},
		{
			name: "max discount caps percentage",
			coupon: &Coupon{Code: "HALF", DiscountType: DiscountPercentage, Value: dec("50"), IsActive: true,
				MaxDiscount: decimal.NewNullDecimal(dec("10"))},
			base:      "100",
			wantValid: true, wantFinal: "90", wantDisc: "10", wantMsg: msgApplied,
		},
		{
			name: "below minimum purchase",
			coupon: &Coupon{Code: "MIN", DiscountType: DiscountFixed, Value: dec("5"), IsActive: true,
				MinPurchase: decimal.NewNullDecimal(dec("50"))},
			base:      "29.99",
			wantFinal: "29.99", wantDisc: "0", wantMsg: "Minimum purchase of 50.00 required",
		},
		{
			name:      "inactive",
			coupon:    &Coupon{Code: "OFF", DiscountType: DiscountFixed, Value: dec("5")},
			base:      "29.99",
			wantFinal: "29.99", wantDisc: "0", wantMsg: msgInactive,
		},
		{
			name:      "expired",
			coupon:    &Coupon{Code: "OLD", DiscountType: DiscountFixed, Value: dec("5"), IsActive: true, ExpiresAt: &past},
			base:      "29.99",
			wantFinal: "29.99", wantDisc: "0", wantMsg: msgExpired,
		},
		{
			name:      "not yet expired",
			coupon:    &Coupon{Code: "NEW", DiscountType: DiscountFixed, Value: dec("5"), IsActive: true, ExpiresAt: &future},
			base:      "29.99",
			wantValid: true, wantFinal: "24.99", wantDisc: "5", wantMsg: msgApplied,
		},
		{
			name: "exhausted",
			coupon: &Coupon{Code: "GONE", DiscountType: DiscountFixed, Value: dec("5"), IsActive: true,
				UsageLimit: intPtr(3), UsageCount: 3},
			base:      "29.99",
			wantFinal: "29.99", wantDisc: "0", wantMsg: msgExhausted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Evaluate(tc.coupon, dec(tc.base), now, rounding)

			if v.IsValid != tc.wantValid {
				t.Fatalf("expected valid=%v, got %v (%s)", tc.wantValid, v.IsValid, v.Message)
			}
			if !v.FinalPrice.Equal(dec(tc.wantFinal)) {
				t.Fatalf("expected final %s, got %s", tc.wantFinal, v.FinalPrice)
			}
			if !v.Discount.Equal(dec(tc.wantDisc)) {
				t.Fatalf("expected discount %s, got %s", tc.wantDisc, v.Discount)
			}
			if v.Message != tc.wantMsg {
				t.Fatalf("expected message %q, got %q", tc.wantMsg, v.Message)
			}
			if !v.Discount.Add(v.FinalPrice).Equal(dec(tc.base)) {
				t.Fatalf("discount + final must equal base")
			}
		})
	}
}

func TestEvaluateHalfUpRounding(t *testing.T) {
	c := &Coupon{Code: "SAVE10", DiscountType: DiscountPercentage, Value: dec("10"), IsActive: true}
	v := Evaluate(c, dec("29.99"), time.Now(), money.Rounding{Scale: 2, Mode: money.RoundHalfUp})

	if !v.FinalPrice.Equal(dec("26.99")) {
		t.Fatalf("expected 26.99 (26.991 rounds down), got %s", v.FinalPrice)
	}

	v = Evaluate(c, dec("29.95"), time.Now(), money.Rounding{Scale: 2, Mode: money.RoundHalfUp})
	if !v.FinalPrice.Equal(dec("26.96")) {
		t.Fatalf("expected 26.96 (26.955 rounds up), got %s", v.FinalPrice)
	}
}
