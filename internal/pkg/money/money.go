package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how amounts are brought to the configured scale.
type RoundingMode string

const (
	RoundTruncate RoundingMode = "truncate"
	RoundHalfUp   RoundingMode = "half_up"
	RoundHalfEven RoundingMode = "half_even"
)

// DefaultScale is the number of fractional digits kept for prices.
const DefaultScale int32 = 2

// Rounding brings computed amounts back to a fixed scale.
type Rounding struct {
	Scale int32
	Mode  RoundingMode
}

// DefaultRounding truncates to two decimals.
func DefaultRounding() Rounding {
	return Rounding{Scale: DefaultScale, Mode: RoundTruncate}
}

// Apply rounds d according to the mode.
func (r Rounding) Apply(d decimal.Decimal) decimal.Decimal {
	switch r.Mode {
	case RoundHalfUp:
		return d.Round(r.Scale)
	case RoundHalfEven:
		return d.RoundBank(r.Scale)
	default:
		return d.Truncate(r.Scale)
	}
}

// ParseRoundingMode accepts truncate, half_up and half_even (case-insensitive).
func ParseRoundingMode(raw string) (RoundingMode, error) {
	switch mode := RoundingMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return RoundTruncate, nil
	case RoundTruncate, RoundHalfUp, RoundHalfEven:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown rounding mode %q", raw)
	}
}

// Parse reads a decimal amount from its string form.
func Parse(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

// MustParse is Parse for constants and tests.
func MustParse(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

// Equal compares amounts numerically, so 100.10 equals 100.100000.
func Equal(expected, actual decimal.Decimal) bool {
	return expected.Cmp(actual) == 0
}

// FloorZero clamps negative amounts to zero.
func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// NormalizeCurrency upper-cases an ISO 4217 code, falling back to def.
func NormalizeCurrency(code, def string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return strings.ToUpper(def)
	}
	return code
}
