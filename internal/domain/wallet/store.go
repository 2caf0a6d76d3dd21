package wallet

import (
	"context"

	"github.com/google/uuid"
)

// Store persists wallets and their journal. Implementations serialize
// mutations per user and never hold a lock across users.
type Store interface {
	// Get returns ErrWalletNotFound when the user has never been credited or debited.
	Get(ctx context.Context, userID uuid.UUID) (*Wallet, error)

	// Apply mutates the wallet, creating it in currency on first use, and
	// appends a journal entry. Replaying the same (reason, reference, amount)
	// returns the current wallet and the original entry without changes.
	Apply(ctx context.Context, userID uuid.UUID, currency string, m Mutation) (*Wallet, *Entry, error)

	// FindEntry looks up the entry written for (reason, reference).
	FindEntry(ctx context.Context, userID uuid.UUID, reason Reason, referenceID string) (*Entry, error)

	// ListEntries returns the journal newest first.
	ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Entry, int, error)
}
