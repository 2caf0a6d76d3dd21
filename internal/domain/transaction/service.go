package transaction

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrForbidden = errors.New("not a party to this transaction")

// Service exposes read access to the transaction log.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the transaction if viewer is its buyer, its seller or an admin.
func (s *Service) Get(ctx context.Context, viewerID uuid.UUID, isAdmin bool, id uuid.UUID) (*Transaction, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !t.CanView(viewerID) {
		return nil, ErrForbidden
	}
	return t, nil
}

// ListForBuyer pages through the user's purchases.
func (s *Service) ListForBuyer(ctx context.Context, userID uuid.UUID, status *Status, limit, offset int) ([]Transaction, int, error) {
	return s.store.List(ctx, Filter{BuyerID: &userID, Status: status, Limit: limit, Offset: offset})
}

// ListForSeller pages through the user's sales.
func (s *Service) ListForSeller(ctx context.Context, userID uuid.UUID, status *Status, limit, offset int) ([]Transaction, int, error) {
	return s.store.List(ctx, Filter{SellerID: &userID, Status: status, Limit: limit, Offset: offset})
}
