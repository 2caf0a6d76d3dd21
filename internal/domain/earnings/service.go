package earnings

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/domain/listing"
	"github.com/promptforge/marketplace-api/internal/domain/transaction"
	"github.com/promptforge/marketplace-api/internal/domain/wallet"
	"github.com/promptforge/marketplace-api/internal/pkg/money"
	"github.com/promptforge/marketplace-api/internal/pkg/storage"
)

const (
	pageSize        = 200
	maxStatementAge = 366 * 24 * time.Hour
)

// Service derives seller earnings from the transaction log
type Service struct {
	transactions transaction.Store
	listings     *listing.Service
	wallets      *wallet.Service
	objects      storage.ObjectStore
	rounding     money.Rounding
	urlTTL       time.Duration
	now          func() time.Time
}

// NewService creates earnings service. objects may be nil, which disables
// statement export.
func NewService(transactions transaction.Store, listings *listing.Service, wallets *wallet.Service, objects storage.ObjectStore, rounding money.Rounding, urlTTL time.Duration) *Service {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &Service{
		transactions: transactions,
		listings:     listings,
		wallets:      wallets,
		objects:      objects,
		rounding:     rounding,
		urlTTL:       urlTTL,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Summarize returns the seller's earnings summary
func (s *Service) Summarize(ctx context.Context, sellerID uuid.UUID) (*Summary, error) {
	txns, err := s.sellerTransactions(ctx, sellerID, nil, nil)
	if err != nil {
		return nil, err
	}

	listings, err := s.sellerListings(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	w, err := s.wallets.Get(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("get seller wallet: %w", err)
	}

	summary := Fold(sellerID, txns, listings, w.Balance, s.rounding)
	return &summary, nil
}

func (s *Service) sellerTransactions(ctx context.Context, sellerID uuid.UUID, from, to *time.Time) ([]transaction.Transaction, error) {
	all := make([]transaction.Transaction, 0)
	for offset := 0; ; offset += pageSize {
		page, total, err := s.transactions.List(ctx, transaction.Filter{
			SellerID: &sellerID,
			From:     from,
			To:       to,
			Limit:    pageSize,
			Offset:   offset,
		})
		if err != nil {
			return nil, fmt.Errorf("list seller transactions: %w", err)
		}
		all = append(all, page...)
		if len(page) < pageSize || offset+pageSize >= total {
			return all, nil
		}
	}
}

func (s *Service) sellerListings(ctx context.Context, sellerID uuid.UUID) ([]listing.Listing, error) {
	all := make([]listing.Listing, 0)
	for offset := 0; ; offset += 100 {
		page, total, err := s.listings.ListBySeller(ctx, sellerID, 100, offset)
		if err != nil {
			return nil, fmt.Errorf("list seller listings: %w", err)
		}
		all = append(all, page...)
		if len(page) < 100 || offset+100 >= total {
			return all, nil
		}
	}
}

// ExportStatement renders the seller's transactions created in [from, to)
// as CSV, stores it and returns a time-limited download link.
func (s *Service) ExportStatement(ctx context.Context, sellerID uuid.UUID, from, to time.Time) (*Statement, error) {
	if s.objects == nil {
		return nil, ErrStorageUnavailable
	}
	if !from.Before(to) || to.Sub(from) > maxStatementAge {
		return nil, ErrInvalidPeriod
	}

	txns, err := s.sellerTransactions(ctx, sellerID, &from, &to)
	if err != nil {
		return nil, err
	}

	body, err := renderCSV(txns)
	if err != nil {
		return nil, fmt.Errorf("render statement: %w", err)
	}

	now := s.now()
	key := fmt.Sprintf("statements/%s/%s_%s_%d.csv",
		sellerID, from.UTC().Format("20060102"), to.UTC().Format("20060102"), now.UnixNano())
	if err := s.objects.Put(ctx, key, body, "text/csv"); err != nil {
		return nil, fmt.Errorf("store statement: %w", err)
	}

	url, err := s.objects.SignedURL(ctx, key, s.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("sign statement url: %w", err)
	}

	log.Info().
		Str("seller_id", sellerID.String()).
		Str("key", key).
		Int("transactions", len(txns)).
		Msg("earnings statement exported")

	return &Statement{
		Key:          key,
		URL:          url,
		From:         from,
		To:           to,
		Transactions: len(txns),
		ExpiresAt:    now.Add(s.urlTTL),
	}, nil
}

var statementHeader = []string{
	"transaction_id", "created_at", "status", "listing_id", "item_id", "buyer_id",
	"original_amount", "discount", "amount", "currency", "payment_method", "coupon_code",
}

func renderCSV(txns []transaction.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(statementHeader); err != nil {
		return nil, err
	}

	revenue := decimal.Zero
	for _, t := range txns {
		coupon := ""
		if t.CouponCode != nil {
			coupon = *t.CouponCode
		}
		if t.Status == transaction.StatusCompleted {
			revenue = revenue.Add(t.Amount)
		}
		err := w.Write([]string{
			t.ID.String(),
			t.CreatedAt.UTC().Format(time.RFC3339),
			string(t.Status),
			t.ListingID.String(),
			t.ItemID,
			t.BuyerID.String(),
			t.OriginalAmount.String(),
			t.Discount.String(),
			t.Amount.String(),
			t.Currency,
			string(t.PaymentMethod),
			coupon,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := w.Write([]string{"total_completed", "", "", "", "", "", "", "", revenue.String(), "", "", ""}); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
