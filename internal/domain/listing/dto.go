package listing

import (
	"github.com/shopspring/decimal"
)

// CreateRequest for listing a prompt
type CreateRequest struct {
	ItemID   string          `json:"item_id" validate:"required,max=128"`
	Title    string          `json:"title" validate:"required,min=2,max=255"`
	Price    decimal.Decimal `json:"price" validate:"decimal_gt0"`
	Currency string          `json:"currency,omitempty" validate:"omitempty,currency"`
}

// UpdateRequest for changing price, title or availability
type UpdateRequest struct {
	Title    *string          `json:"title,omitempty" validate:"omitempty,min=2,max=255"`
	Price    *decimal.Decimal `json:"price,omitempty" validate:"omitempty,decimal_gt0"`
	IsActive *bool            `json:"is_active,omitempty"`
}
