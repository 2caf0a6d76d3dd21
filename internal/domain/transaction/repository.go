package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

const columns = `id, buyer_id, seller_id, listing_id, item_id, amount, original_amount, discount,
	coupon_code, currency, status, payment_method, license_type, idempotency_key, failure_reason,
	created_at, completed_at, refunded_at, refund_attempt_id, refund_started_at`

// Repository is the PostgreSQL transaction log.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, t *Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO transactions (
			id, buyer_id, seller_id, listing_id, item_id, amount, original_amount, discount,
			coupon_code, currency, status, payment_method, license_type, idempotency_key, failure_reason, created_at
		) VALUES (
			:id, :buyer_id, :seller_id, :listing_id, :item_id, :amount, :original_amount, :discount,
			:coupon_code, :currency, :status, :payment_method, :license_type, :idempotency_key, :failure_reason, :created_at
		)
	`, t)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t Transaction
	err := r.db.GetContext(ctx, &t, `SELECT `+columns+` FROM transactions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) GetByIdempotencyKey(ctx context.Context, buyerID uuid.UUID, key string) (*Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		SELECT `+columns+`
		FROM transactions
		WHERE buyer_id = $1 AND idempotency_key = $2
	`, buyerID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from, to Status, at time.Time, failureReason string) (*Transaction, error) {
	if !CanTransition(from, to) || to == StatusRefunded {
		return nil, ErrInvalidTransition
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var reason interface{}
	if failureReason != "" {
		reason = failureReason
	}

	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		UPDATE transactions
		SET status = $1, completed_at = $2, failure_reason = COALESCE($3, failure_reason)
		WHERE id = $4 AND status = $5
		RETURNING `+columns,
		string(to), at, reason, id, string(from))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) ClaimRefund(ctx context.Context, id, attemptID uuid.UUID, at time.Time) (*Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		UPDATE transactions
		SET refund_attempt_id = $1, refund_started_at = $2
		WHERE id = $3 AND status = $4 AND refund_attempt_id IS NULL
		RETURNING `+columns,
		attemptID, at, id, string(StatusCompleted))
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := r.Get(ctx, id)
		switch {
		case getErr != nil:
			return nil, getErr
		case current.Status != StatusCompleted:
			return nil, ErrInvalidTransition
		default:
			return nil, ErrRefundInProgress
		}
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) FinishRefund(ctx context.Context, id, attemptID uuid.UUID, at time.Time) (*Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		UPDATE transactions
		SET status = $1, refunded_at = $2
		WHERE id = $3 AND status = $4 AND refund_attempt_id = $5
		RETURNING `+columns,
		string(StatusRefunded), at, id, string(StatusCompleted), attemptID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) ReleaseRefund(ctx context.Context, id, attemptID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET refund_attempt_id = NULL, refund_started_at = NULL
		WHERE id = $1 AND status = $2 AND refund_attempt_id = $3
	`, id, string(StatusCompleted), attemptID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *Repository) List(ctx context.Context, f Filter) ([]Transaction, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	where := ` WHERE 1=1`
	args := make([]interface{}, 0, 8)
	idx := 1

	if f.BuyerID != nil {
		where += fmt.Sprintf(" AND buyer_id = $%d", idx)
		args = append(args, *f.BuyerID)
		idx++
	}
	if f.SellerID != nil {
		where += fmt.Sprintf(" AND seller_id = $%d", idx)
		args = append(args, *f.SellerID)
		idx++
	}
	if f.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, string(*f.Status))
		idx++
	}
	if f.From != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		where += fmt.Sprintf(" AND created_at < $%d", idx)
		args = append(args, *f.To)
		idx++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM transactions`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := strings.TrimSpace(`SELECT `+columns+` FROM transactions`+where) +
		fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	items := make([]Transaction, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return items, total, nil
}
