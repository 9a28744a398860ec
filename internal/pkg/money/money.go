package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by every stored amount.
const Scale = 2

// MaxIntegerDigits matches NUMERIC(12,2) storage.
const MaxIntegerDigits = 10

const (
	// maxFractionDigits caps how many fractional digits an input may spell
	// out, trailing zeros included, before it is rejected outright.
	maxFractionDigits = 18

	// maxCoefficientBits bounds the unscaled value; 28 decimal digits need 94.
	maxCoefficientBits = 96

	maxInputLength = 64
)

var (
	ErrNotPositive   = errors.New("amount must be greater than zero")
	ErrTooPrecise    = errors.New("amount must have at most two decimal places")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrOutOfRange    = errors.New("amount exceeds the supported range")
)

// Zero is the zero amount.
var Zero = decimal.Zero

// Parse reads a decimal amount such as "60", "60.5" or "60.50". Inputs
// outside the storable range are rejected before any arithmetic runs.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxInputLength {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := CheckBounds(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// CheckBounds rejects amounts whose exponent or digit count could not be
// stored. Round and comparisons rescale by 10^exponent, so this must run on
// untrusted input before either.
func CheckBounds(d decimal.Decimal) error {
	exp := int64(d.Exponent())
	if exp < -maxFractionDigits {
		return ErrTooPrecise
	}
	if exp > MaxIntegerDigits || d.Coefficient().BitLen() > maxCoefficientBits {
		return ErrOutOfRange
	}
	if int64(d.NumDigits())+exp > MaxIntegerDigits {
		return ErrOutOfRange
	}
	return nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromCents builds an amount from minor units.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -Scale)
}

// Cents returns the amount in minor units, rounding half away from zero.
func Cents(d decimal.Decimal) int64 {
	return d.Round(Scale).Shift(Scale).IntPart()
}

// Round normalises an amount to two decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// HasValidScale reports whether d carries no more than two decimal places.
func HasValidScale(d decimal.Decimal) bool {
	switch exp := d.Exponent(); {
	case exp >= -Scale:
		return true
	case exp < -maxFractionDigits:
		return false
	}
	return d.Equal(d.Round(Scale))
}

// ValidatePositive checks that d is strictly positive, storable, and has at
// most two decimals.
func ValidatePositive(d decimal.Decimal) error {
	if err := CheckBounds(d); err != nil {
		return err
	}
	if !d.IsPositive() {
		return ErrNotPositive
	}
	if !HasValidScale(d) {
		return ErrTooPrecise
	}
	return nil
}

// Format renders an amount with exactly two decimals, e.g. "60.00".
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Between reports whether min <= d <= max.
func Between(d, min, max decimal.Decimal) bool {
	return d.GreaterThanOrEqual(min) && d.LessThanOrEqual(max)
}
