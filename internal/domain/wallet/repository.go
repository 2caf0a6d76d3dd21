package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const walletColumns = `user_id, balance, currency, total_earnings, total_spent, updated_at`

const entryColumns = `id, user_id, amount, reason, reference_id, balance_after, created_at`

// Repository is the PostgreSQL Store. Every mutation runs in its own
// transaction holding the wallet row lock.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (r *Repository) lockWallet(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, currency string) (Wallet, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance, currency)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, currency); err != nil {
		return Wallet{}, err
	}

	var w Wallet
	err := tx.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	return w, err
}

func (r *Repository) entryByRef(ctx context.Context, q sqlx.QueryerContext, userID uuid.UUID, reason Reason, referenceID string) (*Entry, error) {
	if referenceID == "" {
		return nil, nil
	}

	var e Entry
	err := sqlx.GetContext(ctx, q, &e, `
		SELECT `+entryColumns+`
		FROM wallet_entries
		WHERE user_id = $1 AND reason = $2 AND reference_id = $3
		LIMIT 1
	`, userID, string(reason), referenceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) updateWallet(ctx context.Context, tx *sqlx.Tx, w Wallet) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = $1, total_earnings = $2, total_spent = $3, updated_at = $4
		WHERE user_id = $5
	`, w.Balance, w.TotalEarnings, w.TotalSpent, w.UpdatedAt, w.UserID)
	return err
}

func (r *Repository) insertEntry(ctx context.Context, tx *sqlx.Tx, e *Entry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_entries (id, user_id, amount, reason, reference_id, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.UserID, e.Amount, string(e.Reason), e.ReferenceID, e.BalanceAfter, e.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

func (r *Repository) Apply(ctx context.Context, userID uuid.UUID, currency string, m Mutation) (*Wallet, *Entry, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	current, err := r.lockWallet(ctx, tx, userID, currency)
	if err != nil {
		return nil, nil, err
	}

	existing, err := r.entryByRef(ctx, tx, userID, m.Reason, m.ReferenceID)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		if !existing.Amount.Equal(m.signed()) {
			return nil, nil, ErrReferenceConflict
		}
		return &current, existing, nil
	}

	now := time.Now().UTC()
	next, err := current.apply(m, now)
	if err != nil {
		return nil, nil, err
	}

	if err := r.updateWallet(ctx, tx, next); err != nil {
		return nil, nil, err
	}

	entry := &Entry{
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

	if err := r.insertEntry(ctx, tx, entry); err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			// Lost a race with a concurrent insert of the same reference.
			return nil, nil, ErrReferenceConflict
		}
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &next, entry, nil
}

func (r *Repository) FindEntry(ctx context.Context, userID uuid.UUID, reason Reason, referenceID string) (*Entry, error) {
	return r.entryByRef(ctx, r.db, userID, reason, referenceID)
}

func (r *Repository) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Entry, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM wallet_entries WHERE user_id = $1`, userID); err != nil {
		return nil, 0, err
	}

	entries := []Entry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT `+entryColumns+`
		FROM wallet_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
