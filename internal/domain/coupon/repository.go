package coupon

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

const columns = `id, code, description, discount_type, value, min_purchase, max_discount,
	expires_at, usage_limit, usage_count, is_active, created_at`

// Repository is the PostgreSQL coupon store
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, c *Coupon) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO coupons (id, code, description, discount_type, value, min_purchase, max_discount,
			expires_at, usage_limit, usage_count, is_active, created_at)
		VALUES (:id, :code, :description, :discount_type, :value, :min_purchase, :max_discount,
			:expires_at, :usage_limit, :usage_count, :is_active, :created_at)
	`, c)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Coupon
	err := r.db.GetContext(ctx, &c, `SELECT `+columns+` FROM coupons WHERE code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) List(ctx context.Context) ([]Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	items := make([]Coupon, 0)
	if err := r.db.SelectContext(ctx, &items, `SELECT `+columns+` FROM coupons ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repository) Redeem(ctx context.Context, code string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		UPDATE coupons
		SET usage_count = usage_count + 1
		WHERE code = $1
		  AND is_active = TRUE
		  AND (expires_at IS NULL OR expires_at >= $2)
		  AND (usage_limit IS NULL OR usage_count < usage_limit)
	`, code, now)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotRedeemable
	}
	return nil
}

func (r *Repository) Release(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		UPDATE coupons SET usage_count = usage_count - 1
		WHERE code = $1 AND usage_count > 0
	`, code)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotRedeemedYet
	}
	return nil
}
