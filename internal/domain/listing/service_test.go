package listing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/domain/listing"
)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateAndUpdateOwnership(t *testing.T) {
	ctx := context.Background()
	svc := listing.NewService(listing.NewMemoryStore(), "usd")
	seller := uuid.New()

	l, err := svc.Create(ctx, seller, &listing.CreateRequest{ItemID: "prompt-1", Title: "Blog Writer", Price: price("29.99")})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !l.IsActive || l.Currency != "USD" || l.SalesCount != 0 {
		t.Fatalf("unexpected new listing: %+v", l)
	}

	if _, err := svc.Create(ctx, seller, &listing.CreateRequest{ItemID: "prompt-1", Title: "Again", Price: price("1")}); !errors.Is(err, listing.ErrDuplicateItem) {
		t.Fatalf("expected ErrDuplicateItem, got %v", err)
	}

	inactive := false
	if _, err := svc.Update(ctx, uuid.New(), l.ID, &listing.UpdateRequest{IsActive: &inactive}); !errors.Is(err, listing.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	newPrice := price("19.99")
	updated, err := svc.Update(ctx, seller, l.ID, &listing.UpdateRequest{Price: &newPrice, IsActive: &inactive})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.IsActive || !updated.Price.Equal(newPrice) {
		t.Fatalf("update not applied: %+v", updated)
	}

	zero := decimal.Zero
	if _, err := svc.Update(ctx, seller, l.ID, &listing.UpdateRequest{Price: &zero}); !errors.Is(err, listing.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestBrowseFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	store := listing.NewMemoryStore()
	svc := listing.NewService(store, "USD")
	seller := uuid.New()

	prices := []string{"9.99", "29.99", "49.99", "4.99"}
	ids := make([]uuid.UUID, len(prices))
	for i, p := range prices {
		l, err := svc.Create(ctx, seller, &listing.CreateRequest{ItemID: "item-" + p, Title: "Prompt " + p, Price: price(p)})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		ids[i] = l.ID
	}

	hidden := false
	if _, err := svc.Update(ctx, seller, ids[3], &listing.UpdateRequest{IsActive: &hidden}); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	minPrice := price("5")
	items, total, err := svc.Browse(ctx, listing.Filter{MinPrice: &minPrice, SortBy: listing.SortPriceHigh, Limit: 10})
	if err != nil {
		t.Fatalf("browse failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 active listings above 5, got %d", total)
	}
	if !items[0].Price.Equal(price("49.99")) || !items[2].Price.Equal(price("9.99")) {
		t.Fatalf("expected price-high order, got %s..%s", items[0].Price, items[2].Price)
	}

	if err := svc.RecordSale(ctx, ids[0], price("9.99")); err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	items, _, _ = svc.Browse(ctx, listing.Filter{SortBy: listing.SortPopular, Limit: 1})
	if items[0].ID != ids[0] {
		t.Fatalf("expected best seller first, got %s", items[0].Title)
	}

	all, total, _ := svc.ListBySeller(ctx, seller, 10, 0)
	if total != 4 || len(all) != 4 {
		t.Fatalf("seller listing must include inactive items, got %d", total)
	}
}

func TestSaleCountersNeverGoNegative(t *testing.T) {
	ctx := context.Background()
	svc := listing.NewService(listing.NewMemoryStore(), "USD")
	l, _ := svc.Create(ctx, uuid.New(), &listing.CreateRequest{ItemID: "p", Title: "Prompt", Price: price("29.99")})

	if err := svc.RecordSale(ctx, l.ID, price("29.99")); err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	if err := svc.ReverseSale(ctx, l.ID, price("29.99")); err != nil {
		t.Fatalf("reverse sale failed: %v", err)
	}
	if err := svc.ReverseSale(ctx, l.ID, price("29.99")); err != nil {
		t.Fatalf("second reverse failed: %v", err)
	}

	got, _ := svc.Get(ctx, l.ID)
	if got.SalesCount != 0 || !got.Revenue.IsZero() {
		t.Fatalf("expected zeroed counters, got sales=%d revenue=%s", got.SalesCount, got.Revenue)
	}

	if err := svc.RecordSale(ctx, uuid.New(), price("1")); !errors.Is(err, listing.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
