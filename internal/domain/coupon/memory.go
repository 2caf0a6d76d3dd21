package coupon

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps coupons in process
type MemoryStore struct {
	mu      sync.Mutex
	coupons map[string]*Coupon
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{coupons: make(map[string]*Coupon)}
}

func (s *MemoryStore) Create(ctx context.Context, c *Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.coupons[c.Code]; ok {
		return ErrDuplicateCode
	}
	stored := *c
	s.coupons[c.Code] = &stored
	return nil
}

func (s *MemoryStore) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[code]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Coupon, error) {
	s.mu.Lock()
	items := make([]Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		items = append(items, *c)
	}
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *MemoryStore) Redeem(ctx context.Context, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[code]
	if !ok || !c.redeemable(now) {
		return ErrNotRedeemable
	}
	c.UsageCount++
	return nil
}

func (s *MemoryStore) Release(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[code]
	if !ok || c.UsageCount == 0 {
		return ErrNotRedeemedYet
	}
	c.UsageCount--
	return nil
}
