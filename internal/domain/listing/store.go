package listing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store persists listings. Sales counters move only through RecordSale and ReverseSale.
type Store interface {
	Create(ctx context.Context, l *Listing) error
	Get(ctx context.Context, id uuid.UUID) (*Listing, error)
	Update(ctx context.Context, l *Listing) error
	List(ctx context.Context, f Filter) ([]Listing, int, error)
	RecordSale(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	ReverseSale(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
}
