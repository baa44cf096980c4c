package money

import (
	"strings"

	"golang.org/x/text/currency"
)

// DefaultCurrency is used when no currency code is configured.
const DefaultCurrency = "NGN"

// DefaultScale is the minor-unit digit count assumed for unknown currencies.
const DefaultScale = 2

// Scale returns the ISO 4217 minor-unit digits of the currency code.
func Scale(code string) int {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return DefaultScale
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// ValidCurrency reports whether code is a recognised ISO 4217 code.
func ValidCurrency(code string) bool {
	_, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	return err == nil
}
