package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/pkg/money"
)

// Config holds ledger settings.
type Config struct {
	Currency      string
	MinWithdrawal decimal.Decimal
}

// Service is the wallet ledger.
type Service struct {
	store         Store
	currency      string
	minWithdrawal decimal.Decimal
}

func NewService(store Store, cfg Config) *Service {
	return &Service{
		store:         store,
		currency:      money.NormalizeCurrency(cfg.Currency, "USD"),
		minWithdrawal: cfg.MinWithdrawal,
	}
}

// Currency is the currency every wallet is held in.
func (s *Service) Currency() string {
	return s.currency
}

// Get returns the user's wallet. A user who has never transacted gets a zero
// wallet that is not persisted.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	w, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrWalletNotFound) {
		zero := newWallet(userID, s.currency, time.Now().UTC())
		return &zero, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// Credit adds amount to the user's balance.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reason Reason, referenceID string) (*Wallet, error) {
	if !reason.IsCredit() {
		return nil, ErrInvalidReason
	}
	return s.apply(ctx, userID, Mutation{Reason: reason, Amount: amount, ReferenceID: referenceID})
}

// Debit subtracts amount from the user's balance. It fails with
// ErrInsufficientFunds, leaving the wallet untouched, rather than going negative.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reason Reason, referenceID string) (*Wallet, error) {
	if !reason.IsDebit() {
		return nil, ErrInvalidReason
	}
	return s.apply(ctx, userID, Mutation{Reason: reason, Amount: amount, ReferenceID: referenceID})
}

// Deposit tops up the wallet. The reference makes retries safe.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, referenceID string) (*Wallet, error) {
	if referenceID == "" {
		return nil, ErrInvalidAmount
	}
	return s.Credit(ctx, userID, amount, ReasonDeposit, referenceID)
}

func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, referenceID string) (*Wallet, error) {
	if referenceID == "" {
		return nil, ErrInvalidAmount
	}
	if amount.LessThan(s.minWithdrawal) {
		return nil, ErrBelowMinWithdrawal
	}
	return s.Debit(ctx, userID, amount, ReasonWithdrawal, referenceID)
}

// EntryExists reports whether a mutation with this reason and reference was recorded.
func (s *Service) EntryExists(ctx context.Context, userID uuid.UUID, reason Reason, referenceID string) (bool, error) {
	e, err := s.store.FindEntry(ctx, userID, reason, referenceID)
	if err != nil {
		return false, err
	}
	return e != nil, nil
}

func (s *Service) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Entry, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListEntries(ctx, userID, limit, offset)
}

func (s *Service) apply(ctx context.Context, userID uuid.UUID, m Mutation) (*Wallet, error) {
	if !m.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	w, entry, err := s.store.Apply(ctx, userID, s.currency, m)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("reason", string(m.Reason)).
		Str("amount", entry.Amount.String()).
		Str("balance", w.Balance.String()).
		Str("reference_id", m.ReferenceID).
		Msg("wallet mutation applied")
	return w, nil
}
