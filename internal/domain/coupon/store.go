package coupon

import (
	"context"
	"time"
)

// Store persists coupons. Codes are stored normalized.
type Store interface {
	Create(ctx context.Context, c *Coupon) error
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)

	// Redeem increments usage only while the coupon is active, unexpired and
	// under its limit; otherwise it returns ErrNotRedeemable.
	Redeem(ctx context.Context, code string, now time.Time) error

	// Release undoes one redemption.
	Release(ctx context.Context, code string) error
}
