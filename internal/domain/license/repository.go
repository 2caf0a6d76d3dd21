package license

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository is the PostgreSQL license store. A partial unique index on
// (buyer_id, item_id) WHERE is_active enforces one active license.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Grant(ctx context.Context, l *License) error {
	if l.Type == "" {
		l.Type = TypePersonal
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO licenses (id, transaction_id, item_id, buyer_id, license_type, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6)
	`, l.ID, l.TransactionID, l.ItemID, l.BuyerID, string(l.Type), l.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyLicensed
		}
		return err
	}
	l.IsActive = true
	return nil
}

func (r *Repository) HasActive(ctx context.Context, buyerID uuid.UUID, itemID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM licenses WHERE buyer_id = $1 AND item_id = $2 AND is_active = TRUE
		)
	`, buyerID, itemID)
	return exists, err
}

func (r *Repository) RevokeByTransaction(ctx context.Context, transactionID uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE licenses SET is_active = FALSE, revoked_at = $1
		WHERE transaction_id = $2 AND is_active = TRUE
	`, at, transactionID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]License, error) {
	items := make([]License, 0)
	err := r.db.SelectContext(ctx, &items, `
		SELECT id, transaction_id, item_id, buyer_id, license_type, is_active, created_at, revoked_at
		FROM licenses
		WHERE buyer_id = $1
		ORDER BY created_at DESC
	`, buyerID)
	return items, err
}
