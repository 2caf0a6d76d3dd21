package payment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry()
	reg.Register("credit_card", NewAutoConfirmGateway("card"))

	gw, err := reg.Get("CREDIT_CARD")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if gw.Name() != "card" {
		t.Fatalf("expected card gateway, got %s", gw.Name())
	}

	if _, err := reg.Get("wallet"); err == nil {
		t.Fatal("expected error for unregistered method")
	}
}

func TestAutoConfirmRespectsCancellation(t *testing.T) {
	gw := NewAutoConfirmGateway("paypal")
	c := Charge{TransactionID: uuid.New(), UserID: uuid.New(), Amount: decimal.NewFromInt(10), Currency: "USD"}

	if err := gw.Charge(context.Background(), c); err != nil {
		t.Fatalf("charge failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := gw.Charge(ctx, c); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
