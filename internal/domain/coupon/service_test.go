package coupon_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/domain/coupon"
	"github.com/promptforge/marketplace-api/internal/pkg/money"
)

func newService(t *testing.T) (*coupon.Service, *coupon.MemoryStore) {
	t.Helper()
	store := coupon.NewMemoryStore()
	svc := coupon.NewService(store, money.DefaultRounding())
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return svc, store
}

func TestValidateIsIdempotentAndPure(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	base := decimal.RequireFromString("29.99")

	first, err := svc.Validate(ctx, "save10", base)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := svc.Validate(ctx, "SAVE10", base)
		if err != nil {
			t.Fatalf("validate failed: %v", err)
		}
		if again.IsValid != first.IsValid || !again.FinalPrice.Equal(first.FinalPrice) || !again.Discount.Equal(first.Discount) {
			t.Fatalf("validation not repeatable: %+v vs %+v", first, again)
		}
	}

	c, _ := store.GetByCode(ctx, "SAVE10")
	if c.UsageCount != 0 {
		t.Fatalf("validation must not change usage count, got %d", c.UsageCount)
	}
	if !first.FinalPrice.Equal(decimal.RequireFromString("26.99")) {
		t.Fatalf("expected 26.99, got %s", first.FinalPrice)
	}
}

func TestValidateUnknownCodeFailsClosed(t *testing.T) {
	svc, _ := newService(t)
	v, err := svc.Validate(context.Background(), "NOPE", decimal.RequireFromString("29.99"))
	if err != nil {
		t.Fatalf("unknown code must not be an error: %v", err)
	}
	if v.IsValid || !v.Discount.IsZero() || !v.FinalPrice.Equal(decimal.RequireFromString("29.99")) {
		t.Fatalf("expected fail-closed validation, got %+v", v)
	}
}

func TestRedeemRespectsLimitUnderConcurrency(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	limit := 3

	if _, err := svc.Create(ctx, &coupon.CreateRequest{
		Code: "launch", DiscountType: coupon.DiscountFixed, Value: decimal.NewFromInt(2), UsageLimit: &limit,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	redeemed := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Redeem(ctx, "LAUNCH")
			if err == nil {
				mu.Lock()
				redeemed++
				mu.Unlock()
				return
			}
			if !errors.Is(err, coupon.ErrNotRedeemable) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if redeemed != limit {
		t.Fatalf("expected %d redemptions, got %d", limit, redeemed)
	}

	if err := svc.Release(ctx, "launch"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := svc.Redeem(ctx, "launch"); err != nil {
		t.Fatalf("redeem after release failed: %v", err)
	}
}

func TestRedeemExpiredCoupon(t *testing.T) {
	store := coupon.NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := coupon.NewService(store, money.DefaultRounding(), coupon.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	expires := now.Add(-time.Minute)
	if _, err := svc.Create(ctx, &coupon.CreateRequest{
		Code: "WINTER", DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(15), ExpiresAt: &expires,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.Redeem(ctx, "WINTER"); !errors.Is(err, coupon.ErrNotRedeemable) {
		t.Fatalf("expected ErrNotRedeemable, got %v", err)
	}
}

func TestCreateRejectsBadDefinitions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, &coupon.CreateRequest{Code: "SAVE10", DiscountType: coupon.DiscountFixed, Value: decimal.NewFromInt(1)}); !errors.Is(err, coupon.ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
	if _, err := svc.Create(ctx, &coupon.CreateRequest{Code: "TOOMUCH", DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(150)}); !errors.Is(err, coupon.ErrInvalidCoupon) {
		t.Fatalf("expected ErrInvalidCoupon, got %v", err)
	}
}
