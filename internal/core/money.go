// Package core holds the ledger domain model and the pure aggregation functions
// computed over it.
//
// Amounts are kept as integer cents. Conversion to and from decimal text goes
// through shopspring/decimal so that "12,50", "12.5" and 12.5 all land on the
// same value.
package core

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// maxCents keeps cents*100 arithmetic inside int64.
const maxCents = (1<<63 - 1) / 100

// maxExponent bounds the decimal exponent accepted on input.
const maxExponent = 30

// Cents creates Money from an integer amount of cents.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (half-up)
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	// decimal accepts exponents; amounts typed by people never carry one.
	if strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents, err := toCents(d)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// toCents rounds d half away from zero to two places and returns it as cents.
func toCents(d decimal.Decimal) (int64, error) {
	// Shift materializes the exponent, so huge ones are refused up front.
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return 0, ErrInvalidAmount
	}
	c := d.Shift(2).Round(0)
	if c.GreaterThan(decimal.NewFromInt(maxCents)) || c.LessThan(decimal.NewFromInt(-maxCents)) {
		return 0, ErrInvalidAmount
	}
	return c.IntPart(), nil
}

// Validate reports whether the amount is a usable positive magnitude.
func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > maxCents {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Euros returns the value as a float64 for display purposes only.
func (m Money) Euros() float64 {
	return m.Decimal().InexactFloat64()
}

// String renders the amount with exactly two decimals, e.g. "12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a plain JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string. A comma
// decimal separator is allowed in the string form.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Money{}
		return nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		s = strings.Trim(s, `"`)
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if s == "" {
			*m = Money{}
			return nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("decode amount %q: %w", string(data), ErrInvalidAmount)
	}
	cents, err := toCents(d)
	if err != nil {
		return fmt.Errorf("decode amount %q: %w", string(data), err)
	}
	*m = Money{Cents: cents}
	return nil
}
