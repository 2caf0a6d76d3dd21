package coupon

import "errors"

var (
	ErrNotFound       = errors.New("coupon not found")
	ErrDuplicateCode  = errors.New("coupon code already exists")
	ErrNotRedeemable  = errors.New("coupon cannot be redeemed")
	ErrInvalidCoupon  = errors.New("invalid coupon definition")
	ErrNotRedeemedYet = errors.New("coupon has no redemptions to release")
)
