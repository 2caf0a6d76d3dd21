package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entryKey struct {
	userID uuid.UUID
	reason Reason
	ref    string
}

// MemoryStore keeps wallets in process. A mutex per user serializes
// mutations for that user; mu only guards the maps themselves.
type MemoryStore struct {
	mu      sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
	wallets map[uuid.UUID]Wallet
	entries map[uuid.UUID][]Entry
	refs    map[entryKey]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:   make(map[uuid.UUID]*sync.Mutex),
		wallets: make(map[uuid.UUID]Wallet),
		entries: make(map[uuid.UUID][]Entry),
		refs:    make(map[entryKey]Entry),
	}
}

func (s *MemoryStore) userLock(userID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *MemoryStore) Get(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return &w, nil
}

func (s *MemoryStore) Apply(ctx context.Context, userID uuid.UUID, currency string, m Mutation) (*Wallet, *Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	now := time.Now().UTC()

	s.mu.Lock()
	current, ok := s.wallets[userID]
	existing, seen := s.refs[entryKey{userID, m.Reason, m.ReferenceID}]
	s.mu.Unlock()

	if !ok {
		current = newWallet(userID, currency, now)
	}

	if m.ReferenceID != "" && seen {
		if !existing.Amount.Equal(m.signed()) {
			return nil, nil, ErrReferenceConflict
		}
		return &current, &existing, nil
	}

	next, err := current.apply(m, now)
	if err != nil {
		return nil, nil, err
	}

	entry := Entry{
		ID:           uuid.New(),
		UserID:       userID,
		Amount:       m.signed(),
		Reason:       m.Reason,
		BalanceAfter: next.Balance,
		CreatedAt:    now,
	}
	if m.ReferenceID != "" {
		ref := m.ReferenceID
		entry.ReferenceID = &ref
	}

	s.mu.Lock()
	s.wallets[userID] = next
	s.entries[userID] = append(s.entries[userID], entry)
	if m.ReferenceID != "" {
		s.refs[entryKey{userID, m.Reason, m.ReferenceID}] = entry
	}
	s.mu.Unlock()

	return &next, &entry, nil
}

func (s *MemoryStore) FindEntry(ctx context.Context, userID uuid.UUID, reason Reason, referenceID string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.refs[entryKey{userID, reason, referenceID}]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *MemoryStore) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Entry, int, error) {
	s.mu.Lock()
	journal := s.entries[userID]
	all := make([]Entry, 0, len(journal))
	for i := len(journal) - 1; i >= 0; i-- {
		all = append(all, journal[i])
	}
	s.mu.Unlock()

	total := len(all)
	if offset >= total {
		return []Entry{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return all[offset:end], total, nil
}
