// Package settings stores business configuration as string key/value pairs
// and exposes it to operations through immutable snapshots.
package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/sequence"
)

const (
	KeyBusinessName        = "business.name"
	KeyBusinessEmail       = "business.email"
	KeyCurrencyCode        = "currency.code"
	KeyCurrencySymbol      = "currency.symbol"
	KeyCurrencyPosition    = "currency.position"
	KeyCurrencyDecimals    = "currency.decimal_places"
	KeyThousandsSeparator  = "currency.thousands_separator"
	KeyDecimalSeparator    = "currency.decimal_separator"
	KeyRoundingGranularity = "invoice.rounding_granularity"
	KeyWalkInCustomerCode  = "customer.walk_in_code"
)

// PrefixKey and WidthKey name the code settings of kind.
func PrefixKey(kind sequence.Kind) string { return kind.SettingsKey() + ".prefix" }
func WidthKey(kind sequence.Kind) string { return kind.SettingsKey() + ".width" }

type definition struct {
	def      string
	validate func(string) error
}

var definitions = buildDefinitions()

func buildDefinitions() map[string]definition {
	display := money.DefaultDisplay()
	defs := map[string]definition{
		KeyBusinessName:        {def: "Kudibooks", validate: nonEmpty},
		KeyBusinessEmail:       {def: ""},
		KeyCurrencyCode:        {def: display.Currency, validate: currencyCode},
		KeyCurrencySymbol:      {def: display.Symbol},
		KeyCurrencyPosition:    {def: string(display.Position), validate: position},
		KeyCurrencyDecimals:    {def: strconv.Itoa(display.DecimalPlaces), validate: intBetween(0, 4)},
		KeyThousandsSeparator:  {def: display.ThousandsSeparator},
		KeyDecimalSeparator:    {def: display.DecimalSeparator, validate: nonEmpty},
		KeyRoundingGranularity: {def: "100", validate: intBetween(1, 1_000_000)},
		KeyWalkInCustomerCode:  {def: ""},
	}
	for _, kind := range sequence.Kinds() {
		scope := sequence.DefaultScope(kind)
		defs[PrefixKey(kind)] = definition{def: scope.Prefix, validate: nonEmpty}
		defs[WidthKey(kind)] = definition{def: strconv.Itoa(scope.Width), validate: intBetween(1, sequence.MaxWidth)}
	}
	return defs
}

// Known reports whether key is a recognised setting.
func Known(key string) bool {
	_, ok := definitions[key]
	return ok
}

// Defaults returns a copy of every key with its default value.
func Defaults() map[string]string {
	out := make(map[string]string, len(definitions))
	for k, d := range definitions {
		out[k] = d.def
	}
	return out
}

func validateValue(key, value string) error {
	d, ok := definitions[key]
	if !ok {
		return fmt.Errorf("unknown setting")
	}
	if d.validate == nil {
		return nil
	}
	return d.validate(value)
}

func nonEmpty(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func currencyCode(v string) error {
	if !money.ValidCurrency(v) {
		return fmt.Errorf("must be an ISO 4217 currency code")
	}
	return nil
}

func position(v string) error {
	switch money.Position(v) {
	case money.PositionBefore, money.PositionAfter:
		return nil
	}
	return fmt.Errorf("must be before or after")
}

func intBetween(lo, hi int64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("must be a whole number")
		}
		if n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}
