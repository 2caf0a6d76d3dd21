package earnings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/domain/listing"
	"github.com/promptforge/marketplace-api/internal/domain/transaction"
)

const (
	recentLimit = 5
	topLimit    = 5
)

// Summary is the seller dashboard view of their sales
type Summary struct {
	SellerID           uuid.UUID                 `json:"seller_id"`
	TotalRevenue       decimal.Decimal           `json:"total_revenue"`
	TotalSales         int                       `json:"total_sales"`
	AverageSalePrice   decimal.Decimal           `json:"average_sale_price"`
	PendingEarnings    decimal.Decimal           `json:"pending_earnings"`
	AvailableBalance   decimal.Decimal           `json:"available_balance"`
	RecentTransactions []transaction.Transaction `json:"recent_transactions"`
	TopSellingPrompts  []listing.Listing         `json:"top_selling_prompts"`
}

// Statement is an exported CSV of a seller's transactions
type Statement struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Transactions int       `json:"transactions"`
	ExpiresAt    time.Time `json:"expires_at"`
}
