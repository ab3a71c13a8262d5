// Package money holds fixed-point amounts of the settlement asset.
//
// Amounts are stored as int64 minor units (1/100 of the asset) so balances never drift the way
// binary floats do. Decimal text is the only external representation.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept in minor units.
const Scale = 2

var ErrInvalidAmount = errors.New("invalid amount")

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// Amount is a value in minor units. Deltas applied to balances may be negative.
type Amount int64

// Parse converts a positive decimal string with up to two fractional digits into an Amount.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: amount required", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}

	return FromDecimal(d)
}

// FromDecimal converts d into minor units, rejecting non-positive values and sub-minor precision.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: must be > 0", ErrInvalidAmount)
	}

	minor := d.Shift(Scale)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: supports up to %d decimals", ErrInvalidAmount, Scale)
	}

	if minor.GreaterThan(maxMinor) {
		return 0, fmt.Errorf("%w: too large", ErrInvalidAmount)
	}

	return Amount(minor.IntPart()), nil
}

// Decimal returns the amount in whole asset units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

// String renders the amount with exactly two decimals, e.g. "12.30".
func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

// MulFloor multiplies by m and truncates toward zero to the minor unit.
func (a Amount) MulFloor(m decimal.Decimal) Amount {
	return Amount(a.Decimal().Mul(m).Shift(Scale).Truncate(0).IntPart())
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}

	*a = v

	return nil
}

// MarshalJSON writes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both "1.50" and 1.5.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return fmt.Errorf("%w: amount required", ErrInvalidAmount)
	}

	return a.UnmarshalText([]byte(strings.Trim(s, `"`)))
}
