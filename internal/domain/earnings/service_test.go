package earnings_test

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/promptforge/marketplace-api/internal/domain/earnings"
	"github.com/promptforge/marketplace-api/internal/domain/listing"
	"github.com/promptforge/marketplace-api/internal/domain/transaction"
	"github.com/promptforge/marketplace-api/internal/domain/wallet"
	"github.com/promptforge/marketplace-api/internal/pkg/money"
	"github.com/promptforge/marketplace-api/internal/pkg/storage"
)

func newEarningsService(t *testing.T, txns *transaction.MemoryStore, objects storage.ObjectStore) (*earnings.Service, *listing.Service, *wallet.Service) {
	t.Helper()
	listings := listing.NewService(listing.NewMemoryStore(), "USD")
	wallets := wallet.NewService(wallet.NewMemoryStore(), wallet.Config{Currency: "USD"})
	return earnings.NewService(txns, listings, wallets, objects, money.DefaultRounding(), time.Minute), listings, wallets
}

func TestSummarizeFromStores(t *testing.T) {
	ctx := context.Background()
	seller := uuid.New()
	txns := transaction.NewMemoryStore()
	for _, txn := range fixtureTransactions(seller) {
		txn := txn
		if err := txns.Create(ctx, &txn); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	svc, listings, wallets := newEarningsService(t, txns, nil)
	l, err := listings.Create(ctx, seller, &listing.CreateRequest{ItemID: "p-1", Title: "SEO brief", Price: d("9.99")})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if err := listings.RecordSale(ctx, l.ID, d("9.99")); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if _, err := wallets.Credit(ctx, seller, d("50"), wallet.ReasonSalePayout, "payout-fixture"); err != nil {
		t.Fatalf("credit: %v", err)
	}

	s, err := svc.Summarize(ctx, seller)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !s.TotalRevenue.Equal(d("50")) || s.TotalSales != 3 {
		t.Fatalf("unexpected totals: revenue=%s sales=%d", s.TotalRevenue, s.TotalSales)
	}
	if !s.AvailableBalance.Equal(d("50")) {
		t.Fatalf("expected balance 50, got %s", s.AvailableBalance)
	}
	if len(s.TopSellingPrompts) != 1 || s.TopSellingPrompts[0].SalesCount != 1 {
		t.Fatalf("unexpected top prompts: %+v", s.TopSellingPrompts)
	}
}

func TestExportStatement(t *testing.T) {
	ctx := context.Background()
	seller := uuid.New()
	txns := transaction.NewMemoryStore()
	for _, txn := range fixtureTransactions(seller) {
		txn := txn
		if err := txns.Create(ctx, &txn); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	dir := t.TempDir()
	objects, err := storage.NewLocalStorage(dir, "http://localhost/files")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	svc, _, _ := newEarningsService(t, txns, objects)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	stmt, err := svc.ExportStatement(ctx, seller, from, to)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if stmt.Transactions != 5 || !strings.HasPrefix(stmt.URL, "http://localhost/files/statements/") {
		t.Fatalf("unexpected statement: %+v", stmt)
	}

	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(stmt.Key)))
	if err != nil {
		t.Fatalf("open statement: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("expected header, 5 rows and total, got %d rows", len(rows))
	}
	last := rows[len(rows)-1]
	if last[0] != "total_completed" || last[8] != "50" {
		t.Fatalf("unexpected total row: %v", last)
	}

	if _, err := svc.ExportStatement(ctx, seller, to, from); !errors.Is(err, earnings.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestExportStatementWithoutStorage(t *testing.T) {
	svc, _, _ := newEarningsService(t, transaction.NewMemoryStore(), nil)
	now := time.Now()
	if _, err := svc.ExportStatement(context.Background(), uuid.New(), now.Add(-time.Hour), now); !errors.Is(err, earnings.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
