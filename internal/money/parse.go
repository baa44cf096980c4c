package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for input that is not a usable decimal amount.
var ErrInvalidAmount = errors.New("money: invalid amount")

// Parse converts a display-unit string such as "1500.50" into minor units of
// the given currency. Input with more fractional digits than the currency
// supports is rejected rather than rounded.
func Parse(input, currencyCode string) (Money, error) {
	d, err := ParseDecimal(input)
	if err != nil {
		return 0, err
	}
	scale := Scale(currencyCode)
	if !d.Equal(d.Round(int32(scale))) {
		return 0, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, input, scale)
	}
	return FromDecimal(d, scale), nil
}

// ParseDecimal parses a plain decimal string.
func ParseDecimal(input string) (decimal.Decimal, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not numeric", ErrInvalidAmount, input)
	}
	return d, nil
}
