package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Charge describes money collected from, or returned to, a buyer outside the wallet
type Charge struct {
	TransactionID uuid.UUID
	UserID        uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	Method        string
}

// Gateway is an external payment processor for one payment method.
// Both calls are keyed by TransactionID so a processor can deduplicate retries.
type Gateway interface {
	// Charge collects the amount; a nil error means the funds are confirmed
	Charge(ctx context.Context, c Charge) error

	// Refund returns a previously charged amount
	Refund(ctx context.Context, c Charge) error

	// Name returns the processor identifier
	Name() string
}

// Registry maps payment methods to gateways
type Registry struct {
	gateways map[string]Gateway
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

// Register binds a payment method to a gateway
func (f *Registry) Register(method string, gateway Gateway) {
	f.gateways[strings.ToLower(method)] = gateway
}

// Get retrieves the gateway for a payment method
func (f *Registry) Get(method string) (Gateway, error) {
	gateway, exists := f.gateways[strings.ToLower(method)]
	if !exists {
		return nil, fmt.Errorf("no payment gateway for method '%s'", method)
	}
	return gateway, nil
}

// Methods returns all registered payment methods
func (f *Registry) Methods() []string {
	names := make([]string, 0, len(f.gateways))
	for name := range f.gateways {
		names = append(names, name)
	}
	return names
}

// AutoConfirmGateway approves every charge and refund immediately.
// It stands in for card and PayPal processors until they are integrated.
type AutoConfirmGateway struct {
	name string
}

func NewAutoConfirmGateway(name string) *AutoConfirmGateway {
	return &AutoConfirmGateway{name: name}
}

func (g *AutoConfirmGateway) Charge(ctx context.Context, c Charge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Info().
		Str("gateway", g.name).
		Str("transaction_id", c.TransactionID.String()).
		Str("amount", c.Amount.String()).
		Str("currency", c.Currency).
		Msg("payment charge confirmed")
	return nil
}

func (g *AutoConfirmGateway) Refund(ctx context.Context, c Charge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Info().
		Str("gateway", g.name).
		Str("transaction_id", c.TransactionID.String()).
		Str("amount", c.Amount.String()).
		Msg("payment refund confirmed")
	return nil
}

func (g *AutoConfirmGateway) Name() string {
	return g.name
}
