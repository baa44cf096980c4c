package money

import (
	"strings"
)

// Position places the currency symbol relative to the number.
type Position string

const (
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
)

// DisplayConfig controls how an amount is rendered for people.
type DisplayConfig struct {
	Currency           string
	Symbol             string
	Position           Position
	DecimalPlaces      int
	ThousandsSeparator string
	DecimalSeparator   string
}

// DefaultDisplay returns the Naira display used when settings are absent.
func DefaultDisplay() DisplayConfig {
	return DisplayConfig{
		Currency:           DefaultCurrency,
		Symbol:             "₦",
		Position:           PositionBefore,
		DecimalPlaces:      2,
		ThousandsSeparator: ",",
		DecimalSeparator:   ".",
	}
}

// Format renders m according to cfg. 150000 kobo with zero decimal places
// renders as "₦1,500".
func (m Money) Format(cfg DisplayConfig) string {
	places := cfg.DecimalPlaces
	if places < 0 {
		places = 0
	}
	decSep := cfg.DecimalSeparator
	if decSep == "" {
		decSep = "."
	}

	value := m.Decimal(Scale(cfg.Currency))
	rounded := value.Abs().Round(int32(places))
	fixed := rounded.StringFixed(int32(places))

	whole, frac, _ := strings.Cut(fixed, ".")
	number := group(whole, cfg.ThousandsSeparator)
	if places > 0 {
		number += decSep + frac
	}

	sign := ""
	if value.IsNegative() && !rounded.IsZero() {
		sign = "-"
	}
	if cfg.Position == PositionAfter {
		return sign + number + cfg.Symbol
	}
	return sign + cfg.Symbol + number
}

// Format is the function form of Money.Format.
func Format(m Money, cfg DisplayConfig) string {
	return m.Format(cfg)
}

func group(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
