package listing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/pkg/money"
)

type sellerItem struct {
	sellerID uuid.UUID
	itemID   string
}

// MemoryStore keeps listings in process
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[uuid.UUID]*Listing
	items    map[sellerItem]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings: make(map[uuid.UUID]*Listing),
		items:    make(map[sellerItem]uuid.UUID),
	}
}

func (s *MemoryStore) Create(ctx context.Context, l *Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sellerItem{l.SellerID, l.ItemID}
	if _, ok := s.items[key]; ok {
		return ErrDuplicateItem
	}
	stored := *l
	s.listings[l.ID] = &stored
	s.items[key] = l.ID
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *l
	return &out, nil
}

func (s *MemoryStore) Update(ctx context.Context, l *Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.listings[l.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Title = l.Title
	stored.Price = l.Price
	stored.IsActive = l.IsActive
	stored.UpdatedAt = l.UpdatedAt
	return nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]Listing, int, error) {
	s.mu.RLock()
	matched := make([]Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if f.matches(l) {
			matched = append(matched, *l)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return f.SortBy.less(&matched[i], &matched[j])
	})

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	total := len(matched)
	if f.Offset >= total {
		return []Listing{}, total, nil
	}
	end := f.Offset + limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}

func (s *MemoryStore) RecordSale(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return ErrNotFound
	}
	l.SalesCount++
	l.Revenue = l.Revenue.Add(amount)
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ReverseSale(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return ErrNotFound
	}
	if l.SalesCount > 0 {
		l.SalesCount--
	}
	l.Revenue = money.FloorZero(l.Revenue.Sub(amount))
	l.UpdatedAt = time.Now().UTC()
	return nil
}
