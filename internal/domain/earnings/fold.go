package earnings

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/domain/listing"
	"github.com/promptforge/marketplace-api/internal/domain/transaction"
	"github.com/promptforge/marketplace-api/internal/pkg/money"
)

// Fold builds a Summary from a seller's transactions and listings. Only
// completed transactions count as revenue; pending ones are reported as
// pending earnings. Inputs are not modified.
func Fold(sellerID uuid.UUID, txns []transaction.Transaction, listings []listing.Listing, balance decimal.Decimal, rounding money.Rounding) Summary {
	s := Summary{
		SellerID:           sellerID,
		TotalRevenue:       decimal.Zero,
		AverageSalePrice:   decimal.Zero,
		PendingEarnings:    decimal.Zero,
		AvailableBalance:   balance,
		RecentTransactions: make([]transaction.Transaction, 0, recentLimit),
		TopSellingPrompts:  make([]listing.Listing, 0, topLimit),
	}

	completed := make([]transaction.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.SellerID != sellerID {
			continue
		}
		switch t.Status {
		case transaction.StatusCompleted:
			s.TotalRevenue = s.TotalRevenue.Add(t.Amount)
			s.TotalSales++
			completed = append(completed, t)
		case transaction.StatusPending:
			s.PendingEarnings = s.PendingEarnings.Add(t.Amount)
		}
	}

	if s.TotalSales > 0 {
		s.AverageSalePrice = rounding.Apply(s.TotalRevenue.Div(decimal.NewFromInt(int64(s.TotalSales))))
	}

	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].CreatedAt.After(completed[j].CreatedAt)
	})
	if len(completed) > recentLimit {
		completed = completed[:recentLimit]
	}
	s.RecentTransactions = append(s.RecentTransactions, completed...)

	ranked := make([]listing.Listing, 0, len(listings))
	for _, l := range listings {
		if l.SellerID == sellerID {
			ranked = append(ranked, l)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].SalesCount != ranked[j].SalesCount {
			return ranked[i].SalesCount > ranked[j].SalesCount
		}
		return ranked[i].Revenue.GreaterThan(ranked[j].Revenue)
	})
	if len(ranked) > topLimit {
		ranked = ranked[:topLimit]
	}
	s.TopSellingPrompts = append(s.TopSellingPrompts, ranked...)

	return s
}
