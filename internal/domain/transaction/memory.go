package transaction

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type idemKey struct {
	buyerID uuid.UUID
	key     string
}

// MemoryStore is an in-process transaction log.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*Transaction
	order []uuid.UUID
	idem  map[idemKey]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[uuid.UUID]*Transaction),
		idem: make(map[idemKey]uuid.UUID),
	}
}

func (s *MemoryStore) Create(ctx context.Context, t *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.IdempotencyKey != nil {
		k := idemKey{t.BuyerID, *t.IdempotencyKey}
		if _, ok := s.idem[k]; ok {
			return ErrDuplicateIdempotencyKey
		}
		s.idem[k] = t.ID
	}

	stored := *t
	s.byID[t.ID] = &stored
	s.order = append(s.order, t.ID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *t
	return &out, nil
}

func (s *MemoryStore) GetByIdempotencyKey(ctx context.Context, buyerID uuid.UUID, key string) (*Transaction, error) {
	s.mu.RLock()
	id, ok := s.idem[idemKey{buyerID, key}]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *MemoryStore) Transition(ctx context.Context, id uuid.UUID, from, to Status, at time.Time, failureReason string) (*Transaction, error) {
	if !CanTransition(from, to) || to == StatusRefunded {
		return nil, ErrInvalidTransition
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok || t.Status != from {
		return nil, ErrInvalidTransition
	}

	t.Status = to
	t.CompletedAt = &at
	if failureReason != "" {
		t.FailureReason = &failureReason
	}

	out := *t
	return &out, nil
}

func (s *MemoryStore) ClaimRefund(ctx context.Context, id, attemptID uuid.UUID, at time.Time) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != StatusCompleted {
		return nil, ErrInvalidTransition
	}
	if t.RefundAttemptID != nil {
		return nil, ErrRefundInProgress
	}

	t.RefundAttemptID = &attemptID
	t.RefundStartedAt = &at
	out := *t
	return &out, nil
}

func (s *MemoryStore) FinishRefund(ctx context.Context, id, attemptID uuid.UUID, at time.Time) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok || t.Status != StatusCompleted || t.RefundAttemptID == nil || *t.RefundAttemptID != attemptID {
		return nil, ErrInvalidTransition
	}

	t.Status = StatusRefunded
	t.RefundedAt = &at
	out := *t
	return &out, nil
}

func (s *MemoryStore) ReleaseRefund(ctx context.Context, id, attemptID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok || t.Status != StatusCompleted || t.RefundAttemptID == nil || *t.RefundAttemptID != attemptID {
		return ErrInvalidTransition
	}
	t.RefundAttemptID = nil
	t.RefundStartedAt = nil
	return nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]Transaction, int, error) {
	s.mu.RLock()
	matched := make([]Transaction, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		t := s.byID[s.order[i]]
		if f.matches(t) {
			matched = append(matched, *t)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	total := len(matched)
	if f.Offset >= total {
		return []Transaction{}, total, nil
	}
	end := f.Offset + limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}
