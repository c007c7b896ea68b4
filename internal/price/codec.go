// Package price converts between human decimal price strings and the
// scaled integer representation stored on offers.
//
// Scaling is done in exact decimal arithmetic (shopspring/decimal) and only
// the final value is rounded, half away from zero. A binary float is never
// involved, so inputs like "0.1" scale without an off-by-one unit error.
package price

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/currency"
)

// Bounds on untrusted decimals. An int64 holds 19 decimal digits.
const (
	minExponent  = -64
	maxExponent  = 32
	scaledDigits = 19
)

var (
	// ErrInvalidPrice is returned for empty or malformed decimal input.
	ErrInvalidPrice = errors.New("price: invalid decimal price")

	// ErrOutOfRange is returned when the scaled value does not fit an int64.
	ErrOutOfRange = errors.New("price: scaled price out of range")

	maxScaled = decimal.NewFromInt(math.MaxInt64)
	minScaled = decimal.NewFromInt(math.MinInt64)
)

// ToScaledInteger parses s and scales it by 10^precision of code.
func ToScaledInteger(s, code string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidPrice)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	return Scale(d, code)
}

// Scale shifts d by the precision of code and rounds to an integer.
func Scale(d decimal.Decimal, code string) (int64, error) {
	precision := currency.Precision(code)
	if err := CheckMagnitude(d, scaledDigits-int64(precision)); err != nil {
		return 0, fmt.Errorf("%w (%s)", err, code)
	}
	scaled := d.Shift(precision).Round(0)
	if scaled.GreaterThan(maxScaled) || scaled.LessThan(minScaled) {
		return 0, fmt.Errorf("%w: %s %s", ErrOutOfRange, d.String(), code)
	}
	return scaled.IntPart(), nil
}

// CheckMagnitude rejects d with ErrOutOfRange when its exponent lies
// outside [minExponent, maxExponent] or it has more than integerDigits
// digits before the decimal point. It only inspects the coefficient and
// exponent, so it is safe to call on untrusted input before any
// arithmetic.
func CheckMagnitude(d decimal.Decimal, integerDigits int64) error {
	exp := d.Exponent()
	if exp < minExponent || exp > maxExponent {
		return fmt.Errorf("%w: exponent %d not in [%d, %d]", ErrOutOfRange, exp, minExponent, maxExponent)
	}
	if d.Sign() == 0 {
		return nil
	}
	digits := int64(len(new(big.Int).Abs(d.Coefficient()).String()))
	if digits+int64(exp) > integerDigits {
		return fmt.Errorf("%w: %d integer digits, at most %d", ErrOutOfRange, digits+int64(exp), integerDigits)
	}
	return nil
}

// ToDecimal is the exact decimal value of a scaled price.
func ToDecimal(v int64, code string) decimal.Decimal {
	return decimal.New(v, -currency.Precision(code))
}

// FromScaledInteger renders v with exactly the precision of code.
// FromScaledInteger(123456780000, "BTC") == "1234.56780000".
func FromScaledInteger(v int64, code string) string {
	return ToDecimal(v, code).StringFixed(currency.Precision(code))
}
