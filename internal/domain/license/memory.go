package license

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ownership struct {
	buyerID uuid.UUID
	itemID  string
}

type MemoryStore struct {
	mu       sync.Mutex
	licenses []*License
	active   map[ownership]*License
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{active: make(map[ownership]*License)}
}

func (s *MemoryStore) Grant(ctx context.Context, l *License) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownership{l.BuyerID, l.ItemID}
	if _, ok := s.active[key]; ok {
		return ErrAlreadyLicensed
	}
	if l.Type == "" {
		l.Type = TypePersonal
	}
	l.IsActive = true
	stored := *l
	s.licenses = append(s.licenses, &stored)
	s.active[key] = &stored
	return nil
}

func (s *MemoryStore) HasActive(ctx context.Context, buyerID uuid.UUID, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.active[ownership{buyerID, itemID}]
	return ok, nil
}

func (s *MemoryStore) RevokeByTransaction(ctx context.Context, transactionID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.licenses {
		if l.TransactionID == transactionID && l.IsActive {
			l.IsActive = false
			l.RevokedAt = &at
			delete(s.active, ownership{l.BuyerID, l.ItemID})
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]License, 0)
	for i := len(s.licenses) - 1; i >= 0; i-- {
		if s.licenses[i].BuyerID == buyerID {
			items = append(items, *s.licenses[i])
		}
	}
	return items, nil
}
