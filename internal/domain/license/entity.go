package license

import (
	"time"

	"github.com/google/uuid"
)

// Type is the usage right a license carries
type Type string

const (
	TypePersonal   Type = "personal"
	TypeCommercial Type = "commercial"
)

func (t Type) Valid() bool {
	return t == TypePersonal || t == TypeCommercial
}

// License grants a buyer use of a purchased prompt
type License struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	TransactionID uuid.UUID  `db:"transaction_id" json:"transaction_id"`
	ItemID        string     `db:"item_id" json:"item_id"`
	BuyerID       uuid.UUID  `db:"buyer_id" json:"buyer_id"`
	Type          Type       `db:"license_type" json:"license_type"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	RevokedAt     *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}
