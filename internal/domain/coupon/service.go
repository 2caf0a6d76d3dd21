package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/pkg/money"
)

// Service evaluates and redeems coupons
type Service struct {
	store    Store
	rounding money.Rounding
	now      func() time.Time
}

type Option func(*Service)

// WithClock overrides time.Now, for expiry checks in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, rounding money.Rounding, opts ...Option) *Service {
	s := &Service{store: store, rounding: rounding, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate evaluates code against basePrice without changing any state.
// Unknown codes are reported through the Validation, not as an error.
func (s *Service) Validate(ctx context.Context, code string, basePrice decimal.Decimal) (*Validation, error) {
	c, err := s.store.GetByCode(ctx, NormalizeCode(code))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load coupon: %w", err)
	}

	v := Evaluate(c, basePrice, s.now(), s.rounding)
	return &v, nil
}

// Redeem counts one use of code. It fails with ErrNotRedeemable if the
// coupon became unusable since it was validated.
func (s *Service) Redeem(ctx context.Context, code string) error {
	code = NormalizeCode(code)
	if err := s.store.Redeem(ctx, code, s.now()); err != nil {
		return err
	}
	log.Info().Str("code", code).Msg("coupon redeemed")
	return nil
}

// Release returns one use of code.
func (s *Service) Release(ctx context.Context, code string) error {
	code = NormalizeCode(code)
	if err := s.store.Release(ctx, code); err != nil {
		return err
	}
	log.Info().Str("code", code).Msg("coupon redemption released")
	return nil
}

func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Coupon, error) {
	if !req.Value.IsPositive() {
		return nil, ErrInvalidCoupon
	}
	if req.DiscountType == DiscountPercentage && req.Value.GreaterThan(hundred) {
		return nil, fmt.Errorf("%w: percentage above 100", ErrInvalidCoupon)
	}

	c := &Coupon{
		ID:           uuid.New(),
		Code:         NormalizeCode(req.Code),
		Description:  req.Description,
		DiscountType: req.DiscountType,
		Value:        req.Value,
		MinPurchase:  req.MinPurchase,
		MaxDiscount:  req.MaxDiscount,
		ExpiresAt:    req.ExpiresAt,
		UsageLimit:   req.UsageLimit,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	return s.store.List(ctx)
}

// Seed creates the launch coupons, skipping codes that already exist.
func (s *Service) Seed(ctx context.Context) error {
	for _, req := range launchCoupons() {
		if _, err := s.Create(ctx, &req); err != nil && !errors.Is(err, ErrDuplicateCode) {
			return err
		}
	}
	return nil
}

func launchCoupons() []CreateRequest {
	return []CreateRequest{
		{Code: "SAVE10", Description: "10% off any prompt", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(10)},
		{Code: "SAVE20", Description: "20% off any prompt", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(20)},
		{Code: "FIRST5", Description: "$5 off your first purchase", DiscountType: DiscountFixed, Value: decimal.NewFromInt(5)},
	}
}
