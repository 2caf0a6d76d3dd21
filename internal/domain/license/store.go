package license

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store keeps at most one active license per (buyer, item).
type Store interface {
	Grant(ctx context.Context, l *License) error
	HasActive(ctx context.Context, buyerID uuid.UUID, itemID string) (bool, error)
	RevokeByTransaction(ctx context.Context, transactionID uuid.UUID, at time.Time) error
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]License, error)
}
