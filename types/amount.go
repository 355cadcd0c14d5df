// Package types provides the amount helpers shared across the payments packages.
//
// Amounts are exact decimals (shopspring/decimal). No floating point is used
// anywhere on the money path.
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxScale is the number of fractional digits an input amount may carry.
const MaxScale = 4

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("payments: validation failed for %s: %s", e.Field, e.Message)
}

// ParseAmount parses a decimal amount such as "1.5" or " 2.0001 ".
// Surrounding whitespace is ignored. Values carrying more than MaxScale
// significant fractional digits are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ValidationError{Field: "amount", Message: "empty value"}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ValidationError{Field: "amount", Message: fmt.Sprintf("parse %q: %v", s, err)}
	}

	if !d.Equal(d.Truncate(MaxScale)) {
		return decimal.Zero, ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("%q has more than %d fractional digits", s, MaxScale),
		}
	}

	return d, nil
}

// MustAmount is like ParseAmount but panics on error. Use for hardcoded values.
func MustAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Ptr returns a pointer to a copy of d, for optional amount fields.
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// FormatAmount renders d at full precision with no rounding.
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}
