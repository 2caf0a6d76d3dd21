package wallet

import (
	"github.com/shopspring/decimal"
)

// MutationRequest is the body of deposit and withdrawal calls.
type MutationRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"decimal_gt0"`
	ReferenceID string          `json:"reference_id" validate:"required,max=128"`
}
