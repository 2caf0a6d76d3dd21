package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the append-only transaction log.
type Store interface {
	// Create appends t. A repeated (buyer, idempotency key) pair yields ErrDuplicateIdempotencyKey.
	Create(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByIdempotencyKey(ctx context.Context, buyerID uuid.UUID, key string) (*Transaction, error)

	// Transition moves id from -> to only if it is currently in from.
	// Losing the race, or an illegal move, yields ErrInvalidTransition.
	// Refunds go through ClaimRefund and FinishRefund instead.
	Transition(ctx context.Context, id uuid.UUID, from, to Status, at time.Time, failureReason string) (*Transaction, error)

	// ClaimRefund marks a completed, unclaimed transaction as being refunded by
	// attemptID. A transaction that is not completed yields ErrInvalidTransition,
	// one claimed by another attempt yields ErrRefundInProgress.
	ClaimRefund(ctx context.Context, id, attemptID uuid.UUID, at time.Time) (*Transaction, error)

	// FinishRefund moves a transaction claimed by attemptID to refunded.
	FinishRefund(ctx context.Context, id, attemptID uuid.UUID, at time.Time) (*Transaction, error)

	// ReleaseRefund drops the claim of attemptID; the transaction stays completed.
	ReleaseRefund(ctx context.Context, id, attemptID uuid.UUID) error

	// List returns matching transactions newest first, and the total count.
	List(ctx context.Context, f Filter) ([]Transaction, int, error)
}
