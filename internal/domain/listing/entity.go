package listing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing offers one prompt for sale
type Listing struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ItemID     string          `db:"item_id" json:"item_id"`
	SellerID   uuid.UUID       `db:"seller_id" json:"seller_id"`
	Title      string          `db:"title" json:"title"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Currency   string          `db:"currency" json:"currency"`
	SalesCount int             `db:"sales_count" json:"sales_count"`
	Revenue    decimal.Decimal `db:"revenue" json:"revenue"`
	IsActive   bool            `db:"is_active" json:"is_active"`
	ListedAt   time.Time       `db:"listed_at" json:"listed_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// SortBy orders browse results
type SortBy string

const (
	SortNewest    SortBy = "newest"
	SortPopular   SortBy = "popular"
	SortPriceLow  SortBy = "price-low"
	SortPriceHigh SortBy = "price-high"
)

// Filter for browsing listings
type Filter struct {
	SellerID   *uuid.UUID
	ActiveOnly bool
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	SortBy     SortBy
	Limit      int
	Offset     int
}

func (f Filter) matches(l *Listing) bool {
	if f.SellerID != nil && l.SellerID != *f.SellerID {
		return false
	}
	if f.ActiveOnly && !l.IsActive {
		return false
	}
	if f.MinPrice != nil && l.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && l.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// less reports whether a sorts before b under s.
func (s SortBy) less(a, b *Listing) bool {
	switch s {
	case SortPopular:
		if a.SalesCount != b.SalesCount {
			return a.SalesCount > b.SalesCount
		}
		return a.Revenue.GreaterThan(b.Revenue)
	case SortPriceLow:
		return a.Price.LessThan(b.Price)
	case SortPriceHigh:
		return a.Price.GreaterThan(b.Price)
	default:
		return a.ListedAt.After(b.ListedAt)
	}
}

func (s SortBy) orderClause() string {
	switch s {
	case SortPopular:
		return "sales_count DESC, revenue DESC, listed_at DESC"
	case SortPriceLow:
		return "price ASC, listed_at DESC"
	case SortPriceHigh:
		return "price DESC, listed_at DESC"
	default:
		return "listed_at DESC"
	}
}
