package transaction

import "errors"

var (
	ErrNotFound                = errors.New("transaction not found")
	ErrInvalidTransition       = errors.New("invalid transaction status transition")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used by this buyer")
	ErrRefundInProgress        = errors.New("a refund is already in progress")
)
