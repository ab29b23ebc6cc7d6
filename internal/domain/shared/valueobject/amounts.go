package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how monetary amounts are rounded to the configured scale
type RoundingMode string

const (
	RoundingHalfUp   RoundingMode = "HALF_UP"   // Round half away from zero (default)
	RoundingHalfEven RoundingMode = "HALF_EVEN" // Banker's rounding
	RoundingDown     RoundingMode = "DOWN"      // Truncate toward zero
	RoundingUp       RoundingMode = "UP"        // Round away from zero
)

// IsValid checks if the rounding mode is a valid RoundingMode
func (m RoundingMode) IsValid() bool {
	switch m {
	case RoundingHalfUp, RoundingHalfEven, RoundingDown, RoundingUp:
		return true
	}
	return false
}

// String returns the string representation of RoundingMode
func (m RoundingMode) String() string {
	return string(m)
}

// ParseRoundingMode parses a rounding mode from its string form
func ParseRoundingMode(s string) (RoundingMode, error) {
	mode := RoundingMode(strings.ToUpper(strings.TrimSpace(s)))
	if !mode.IsValid() {
		return "", fmt.Errorf("unknown rounding mode: %q", s)
	}
	return mode, nil
}

// Round applies the rounding mode to the given amount at the given scale
func (m RoundingMode) Round(amount decimal.Decimal, scale int32) decimal.Decimal {
	switch m {
	case RoundingHalfEven:
		return amount.RoundBank(scale)
	case RoundingDown:
		return amount.Truncate(scale)
	case RoundingUp:
		return amount.RoundUp(scale)
	default:
		return amount.Round(scale)
	}
}

// Amounts is a value object holding the three legs of a monetary amount:
// the amount excluding tax, the tax amount, and the amount including tax.
// It is immutable - all operations return new Amounts instances.
type Amounts struct {
	withoutTax decimal.Decimal
	tax        decimal.Decimal
	withTax    decimal.Decimal
}

// NewAmounts creates Amounts from the three legs
func NewAmounts(withoutTax, tax, withTax decimal.Decimal) Amounts {
	return Amounts{withoutTax: withoutTax, tax: tax, withTax: withTax}
}

// ZeroAmounts returns an all-zero Amounts
func ZeroAmounts() Amounts {
	return Amounts{withoutTax: decimal.Zero, tax: decimal.Zero, withTax: decimal.Zero}
}

// AmountsFromStrings creates Amounts from string representations
func AmountsFromStrings(withoutTax, tax, withTax string) (Amounts, error) {
	wo, err := decimal.NewFromString(withoutTax)
	if err != nil {
		return Amounts{}, fmt.Errorf("invalid amount without tax: %w", err)
	}
	t, err := decimal.NewFromString(tax)
	if err != nil {
		return Amounts{}, fmt.Errorf("invalid tax amount: %w", err)
	}
	w, err := decimal.NewFromString(withTax)
	if err != nil {
		return Amounts{}, fmt.Errorf("invalid amount with tax: %w", err)
	}
	return Amounts{withoutTax: wo, tax: t, withTax: w}, nil
}

// WithoutTax returns the amount excluding tax
func (a Amounts) WithoutTax() decimal.Decimal {
	return a.withoutTax
}

// Tax returns the tax amount
func (a Amounts) Tax() decimal.Decimal {
	return a.tax
}

// WithTax returns the amount including tax
func (a Amounts) WithTax() decimal.Decimal {
	return a.withTax
}

// Add returns a new Amounts with each leg summed
func (a Amounts) Add(other Amounts) Amounts {
	return Amounts{
		withoutTax: a.withoutTax.Add(other.withoutTax),
		tax:        a.tax.Add(other.tax),
		withTax:    a.withTax.Add(other.withTax),
	}
}

// Sub returns a new Amounts with each leg of other subtracted
func (a Amounts) Sub(other Amounts) Amounts {
	return Amounts{
		withoutTax: a.withoutTax.Sub(other.withoutTax),
		tax:        a.tax.Sub(other.tax),
		withTax:    a.withTax.Sub(other.withTax),
	}
}

// Negate returns a new Amounts with every leg's sign reversed
func (a Amounts) Negate() Amounts {
	return Amounts{
		withoutTax: a.withoutTax.Neg(),
		tax:        a.tax.Neg(),
		withTax:    a.withTax.Neg(),
	}
}

// MulScalar returns a new Amounts with every leg multiplied by the factor
func (a Amounts) MulScalar(factor decimal.Decimal) Amounts {
	return Amounts{
		withoutTax: a.withoutTax.Mul(factor),
		tax:        a.tax.Mul(factor),
		withTax:    a.withTax.Mul(factor),
	}
}

// Round returns a new Amounts with every leg rounded to scale using mode
func (a Amounts) Round(scale int32, mode RoundingMode) Amounts {
	return Amounts{
		withoutTax: mode.Round(a.withoutTax, scale),
		tax:        mode.Round(a.tax, scale),
		withTax:    mode.Round(a.withTax, scale),
	}
}

// IsZero returns true if all three legs are zero
func (a Amounts) IsZero() bool {
	return a.withoutTax.IsZero() && a.tax.IsZero() && a.withTax.IsZero()
}

// Equals returns true if every leg matches exactly
func (a Amounts) Equals(other Amounts) bool {
	return a.withoutTax.Equal(other.withoutTax) &&
		a.tax.Equal(other.tax) &&
		a.withTax.Equal(other.withTax)
}

// String returns a human-readable representation of the three legs
func (a Amounts) String() string {
	return fmt.Sprintf("without=%s tax=%s with=%s",
		a.withoutTax.StringFixed(2), a.tax.StringFixed(2), a.withTax.StringFixed(2))
}
