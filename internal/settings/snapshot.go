package settings

import (
	"context"
	"strconv"
	"strings"

	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/sequence"
)

// Snapshot is a read-only view of settings taken once per operation, so a
// single save never observes two different configurations.
type Snapshot struct {
	values map[string]string
}

// Reader hands out snapshots. *Service implements it.
type Reader interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Static is a Reader that always returns the same values.
type Static map[string]string

func (s Static) Snapshot(context.Context) (Snapshot, error) {
	return NewSnapshot(s), nil
}

// NewSnapshot layers stored values over the defaults.
func NewSnapshot(stored map[string]string) Snapshot {
	values := Defaults()
	for k, v := range stored {
		values[k] = v
	}
	return Snapshot{values: values}
}

// Get returns the value of key, or def when the key is unset.
func (s Snapshot) Get(key, def string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Int parses key as an integer, falling back to def on absence or bad data.
func (s Snapshot) Int(key string, def int64) int64 {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return def
	}
	return n
}

// All returns a copy of every effective value.
func (s Snapshot) All() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Scope returns the code scope configured for kind.
func (s Snapshot) Scope(kind sequence.Kind) sequence.Scope {
	def := sequence.DefaultScope(kind)
	scope := sequence.Scope{
		Kind:   kind,
		Prefix: s.Get(PrefixKey(kind), def.Prefix),
		Width:  int(s.Int(WidthKey(kind), int64(def.Width))),
	}
	if scope.Validate() != nil {
		return def
	}
	return scope
}

// MoneyFormat returns the display configuration for amounts.
func (s Snapshot) MoneyFormat() money.DisplayConfig {
	def := money.DefaultDisplay()
	return money.DisplayConfig{
		Currency:           s.Get(KeyCurrencyCode, def.Currency),
		Symbol:             s.Get(KeyCurrencySymbol, def.Symbol),
		Position:           money.Position(s.Get(KeyCurrencyPosition, string(def.Position))),
		DecimalPlaces:      int(s.Int(KeyCurrencyDecimals, int64(def.DecimalPlaces))),
		ThousandsSeparator: s.Get(KeyThousandsSeparator, def.ThousandsSeparator),
		DecimalSeparator:   s.Get(KeyDecimalSeparator, def.DecimalSeparator),
	}
}

// RoundingGranularity is the step invoice totals are rounded to, in minor units.
func (s Snapshot) RoundingGranularity() money.Money {
	g := s.Int(KeyRoundingGranularity, 100)
	if g <= 0 {
		g = 100
	}
	return money.FromMinor(g)
}

// WalkInCustomerCode is the code of the walk-in customer: the configured
// value, or the first code of the customer scope.
func (s Snapshot) WalkInCustomerCode() string {
	if code := strings.TrimSpace(s.Get(KeyWalkInCustomerCode, "")); code != "" {
		return code
	}
	return s.Scope(sequence.KindCustomer).Format(1)
}

// FormatMoney renders m with the configured display settings.
func (s Snapshot) FormatMoney(m money.Money) string {
	return m.Format(s.MoneyFormat())
}
