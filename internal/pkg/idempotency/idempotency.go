// Package idempotency reserves client-supplied request keys so a retried
// request observes the outcome of the first attempt instead of repeating it.
package idempotency

import (
	"context"
	"errors"
	"time"
)

// ErrInProgress is returned when another request holds the key.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

const pendingMarker = "pending"

// Record is the outcome of Reserve. Reserved is true when the caller now owns
// the key; otherwise Result holds what the first request completed with.
type Record struct {
	Reserved bool
	Result   string
}

// Store reserves keys. Reservations and results expire after ttl.
type Store interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (Record, error)
	Complete(ctx context.Context, key, result string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}
