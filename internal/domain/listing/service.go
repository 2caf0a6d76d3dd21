package listing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/pkg/money"
)

// Service manages the prompt catalog
type Service struct {
	store    Store
	currency string
}

func NewService(store Store, defaultCurrency string) *Service {
	return &Service{store: store, currency: money.NormalizeCurrency(defaultCurrency, "USD")}
}

// Create lists an item for sale by sellerID
func (s *Service) Create(ctx context.Context, sellerID uuid.UUID, req *CreateRequest) (*Listing, error) {
	if !req.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	now := time.Now().UTC()
	l := &Listing{
		ID:        uuid.New(),
		ItemID:    strings.TrimSpace(req.ItemID),
		SellerID:  sellerID,
		Title:     strings.TrimSpace(req.Title),
		Price:     req.Price,
		Currency:  money.NormalizeCurrency(req.Currency, s.currency),
		Revenue:   decimal.Zero,
		IsActive:  true,
		ListedAt:  now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, l); err != nil {
		return nil, err
	}

	log.Info().Str("listing_id", l.ID.String()).Str("seller_id", sellerID.String()).Str("price", l.Price.String()).Msg("listing created")
	return l, nil
}

// Update changes a listing owned by sellerID
func (s *Service) Update(ctx context.Context, sellerID, id uuid.UUID, req *UpdateRequest) (*Listing, error) {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.SellerID != sellerID {
		return nil, ErrNotOwner
	}

	if req.Title != nil {
		l.Title = strings.TrimSpace(*req.Title)
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			return nil, ErrInvalidPrice
		}
		l.Price = *req.Price
	}
	if req.IsActive != nil {
		l.IsActive = *req.IsActive
	}
	l.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Listing, error) {
	return s.store.Get(ctx, id)
}

// Browse pages through active listings
func (s *Service) Browse(ctx context.Context, f Filter) ([]Listing, int, error) {
	f.ActiveOnly = true
	return s.store.List(ctx, f)
}

// ListBySeller returns every listing of a seller, active or not
func (s *Service) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]Listing, int, error) {
	return s.store.List(ctx, Filter{SellerID: &sellerID, SortBy: SortNewest, Limit: limit, Offset: offset})
}

// RecordSale bumps salesCount and revenue after a completed purchase
func (s *Service) RecordSale(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return s.store.RecordSale(ctx, id, amount)
}

// ReverseSale undoes RecordSale for a refunded or compensated purchase
func (s *Service) ReverseSale(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return s.store.ReverseSale(ctx, id, amount)
}
