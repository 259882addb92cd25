package fulfillment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

// AmountUnit says how the processor account expresses amounts on the wire.
// Paddle Billing sends integer strings in the currency's minor unit ("1000" is
// 10.00 USD); older account setups send major-unit decimals ("10.00").
type AmountUnit int

const (
	AmountUnitMinor AmountUnit = iota
	AmountUnitMajor
)

// DefaultAmountUnit matches the live processor account.
const DefaultAmountUnit = AmountUnitMinor

// minorUnitExponent is the number of decimal places between minor and major
// units. Zero-decimal currencies are not sold.
const minorUnitExponent = 2

func ParseAmountUnit(s string) (AmountUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "minor":
		return AmountUnitMinor, nil
	case "major":
		return AmountUnitMajor, nil
	default:
		return 0, fmt.Errorf("unknown amount unit %q", s)
	}
}

func (u AmountUnit) String() string {
	if u == AmountUnitMajor {
		return "major"
	}
	return "minor"
}

// ToMajor converts a wire amount to major currency units.
func (u AmountUnit) ToMajor(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty amount: %w", domain.ErrInvalidPayload)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", raw, domain.ErrInvalidPayload)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q: %w", raw, domain.ErrInvalidPayload)
	}

	if u == AmountUnitMinor {
		if !amount.Equal(amount.Truncate(0)) {
			return decimal.Zero, fmt.Errorf("fractional minor-unit amount %q: %w", raw, domain.ErrInvalidPayload)
		}
		return amount.Shift(-minorUnitExponent), nil
	}
	if amount.Exponent() < -minorUnitExponent && !amount.Equal(amount.Round(minorUnitExponent)) {
		return decimal.Zero, fmt.Errorf("amount %q has sub-cent precision: %w", raw, domain.ErrInvalidPayload)
	}
	return amount, nil
}
