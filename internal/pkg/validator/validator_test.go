package validator

import (
	"testing"

	"github.com/shopspring/decimal"
)

type purchaseInput struct {
	Method string          `json:"payment_method" validate:"required,payment_method"`
	Amount decimal.Decimal `json:"amount" validate:"decimal_gt0"`
	Cur    string          `json:"currency" validate:"omitempty,currency"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	errs := Validate(purchaseInput{Method: "bitcoin", Amount: decimal.Zero, Cur: "usd"})

	for _, field := range []string{"payment_method", "amount", "currency"} {
		if _, ok := errs[field]; !ok {
			t.Fatalf("expected error for %s, got %v", field, errs)
		}
	}
}

func TestValidatePasses(t *testing.T) {
	errs := Validate(purchaseInput{Method: "wallet", Amount: decimal.RequireFromString("29.99"), Cur: "USD"})
	if errs != nil {
		t.Fatalf("expected no errors, got %v", errs)
	}
}
