package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/pkg/money"
)

// Reason classifies a ledger mutation and decides which counters it moves.
type Reason string

const (
	ReasonDeposit          Reason = "deposit"
	ReasonSalePayout       Reason = "sale_payout"
	ReasonPurchase         Reason = "purchase"
	ReasonWithdrawal       Reason = "withdrawal"
	ReasonPurchaseReversal Reason = "purchase_reversal"
	ReasonPayoutReversal   Reason = "payout_reversal"
	ReasonRefund           Reason = "refund"
	ReasonRefundClawback   Reason = "refund_clawback"
)

// IsCredit reports whether the reason adds to the balance.
func (r Reason) IsCredit() bool {
	switch r {
	case ReasonDeposit, ReasonSalePayout, ReasonPurchaseReversal, ReasonRefund:
		return true
	}
	return false
}

// IsDebit reports whether the reason subtracts from the balance.
func (r Reason) IsDebit() bool {
	switch r {
	case ReasonPurchase, ReasonWithdrawal, ReasonPayoutReversal, ReasonRefundClawback:
		return true
	}
	return false
}

type Wallet struct {
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	Balance       decimal.Decimal `db:"balance" json:"balance"`
	Currency      string          `db:"currency" json:"currency"`
	TotalEarnings decimal.Decimal `db:"total_earnings" json:"total_earnings"`
	TotalSpent    decimal.Decimal `db:"total_spent" json:"total_spent"`
	UpdatedAt     time.Time       `db:"updated_at" json:"last_updated"`
}

// Entry is one journal line. Amount is signed: credits positive, debits negative.
type Entry struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	UserID       uuid.UUID       `db:"user_id" json:"user_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Reason       Reason          `db:"reason" json:"reason"`
	ReferenceID  *string         `db:"reference_id" json:"reference_id,omitempty"`
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Mutation is a single balance change requested from a Store.
type Mutation struct {
	Reason      Reason
	Amount      decimal.Decimal
	ReferenceID string
}

// signed returns the amount as it is written to the journal.
func (m Mutation) signed() decimal.Decimal {
	if m.Reason.IsDebit() {
		return m.Amount.Neg()
	}
	return m.Amount
}

func newWallet(userID uuid.UUID, currency string, now time.Time) Wallet {
	return Wallet{
		UserID:        userID,
		Balance:       decimal.Zero,
		Currency:      currency,
		TotalEarnings: decimal.Zero,
		TotalSpent:    decimal.Zero,
		UpdatedAt:     now,
	}
}

// apply computes the wallet after m. The receiver is left untouched, so a
// rejected mutation never leaks partial state.
func (w Wallet) apply(m Mutation, now time.Time) (Wallet, error) {
	if !m.Amount.IsPositive() {
		return w, ErrInvalidAmount
	}

	next := w
	switch m.Reason {
	case ReasonDeposit:
		next.Balance = w.Balance.Add(m.Amount)
	case ReasonSalePayout:
		next.Balance = w.Balance.Add(m.Amount)
		next.TotalEarnings = w.TotalEarnings.Add(m.Amount)
	case ReasonPurchaseReversal, ReasonRefund:
		next.Balance = w.Balance.Add(m.Amount)
		next.TotalSpent = money.FloorZero(w.TotalSpent.Sub(m.Amount))
	case ReasonPurchase:
		next.Balance = w.Balance.Sub(m.Amount)
		next.TotalSpent = w.TotalSpent.Add(m.Amount)
	case ReasonWithdrawal:
		next.Balance = w.Balance.Sub(m.Amount)
	case ReasonPayoutReversal, ReasonRefundClawback:
		next.Balance = w.Balance.Sub(m.Amount)
		next.TotalEarnings = money.FloorZero(w.TotalEarnings.Sub(m.Amount))
	default:
		return w, ErrInvalidReason
	}

	if next.Balance.IsNegative() {
		return w, ErrInsufficientFunds
	}
	next.UpdatedAt = now
	return next, nil
}
