package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const queryTimeout = 3 * time.Second

const columns = `id, item_id, seller_id, title, price, currency, sales_count, revenue, is_active, listed_at, updated_at`

// Repository is the PostgreSQL listing store
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, l *Listing) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO listings (id, item_id, seller_id, title, price, currency, sales_count, revenue, is_active, listed_at, updated_at)
		VALUES (:id, :item_id, :seller_id, :title, :price, :currency, :sales_count, :revenue, :is_active, :listed_at, :updated_at)
	`, l)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateItem
		}
		return err
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var l Listing
	err := r.db.GetContext(ctx, &l, `SELECT `+columns+` FROM listings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Update writes the editable fields only; counters are left alone.
func (r *Repository) Update(ctx context.Context, l *Listing) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET title = $1, price = $2, is_active = $3, updated_at = $4
		WHERE id = $5
	`, l.Title, l.Price, l.IsActive, l.UpdatedAt, l.ID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, f Filter) ([]Listing, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	where := ` WHERE 1=1`
	args := make([]interface{}, 0, 6)
	idx := 1

	if f.SellerID != nil {
		where += fmt.Sprintf(" AND seller_id = $%d", idx)
		args = append(args, *f.SellerID)
		idx++
	}
	if f.ActiveOnly {
		where += " AND is_active = TRUE"
	}
	if f.MinPrice != nil {
		where += fmt.Sprintf(" AND price >= $%d", idx)
		args = append(args, *f.MinPrice)
		idx++
	}
	if f.MaxPrice != nil {
		where += fmt.Sprintf(" AND price <= $%d", idx)
		args = append(args, *f.MaxPrice)
		idx++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM listings`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + columns + ` FROM listings` + where +
		` ORDER BY ` + f.SortBy.orderClause() +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	items := make([]Listing, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}
	return items, total, nil
}

func (r *Repository) RecordSale(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.adjustSales(ctx, `
		UPDATE listings
		SET sales_count = sales_count + 1, revenue = revenue + $1, updated_at = now()
		WHERE id = $2
	`, amount, id)
}

func (r *Repository) ReverseSale(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.adjustSales(ctx, `
		UPDATE listings
		SET sales_count = GREATEST(sales_count - 1, 0),
		    revenue = GREATEST(revenue - $1, 0),
		    updated_at = now()
		WHERE id = $2
	`, amount, id)
}

func (r *Repository) adjustSales(ctx context.Context, query string, amount decimal.Decimal, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, query, amount, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}
