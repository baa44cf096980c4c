// Package sequence allocates human-readable codes such as CU-0001 or IN-00001.
//
// A code is allocated inside a database transaction that holds a row lock on
// the per-prefix counter in code_sequences. The entity tables carry a UNIQUE
// constraint on code, so any double allocation that slips past the lock fails
// on insert and is retried with a fresh transaction.
package sequence

import (
	"fmt"
	"strings"
)

// Kind names an entity that owns codes.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindProduct  Kind = "product"
	KindInvoice  Kind = "invoice"
	KindExpense  Kind = "expense"
)

var kinds = []Kind{KindCustomer, KindProduct, KindInvoice, KindExpense}

var kindTables = map[Kind]string{
	KindCustomer: "customers",
	KindProduct:  "products",
	KindInvoice:  "invoices",
	KindExpense:  "expenses",
}

// Kinds returns every known kind in a stable order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind accepts the singular or plural name.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range kinds {
		if s == string(k) || s == kindTables[k] {
			return k, nil
		}
	}
	return "", fmt.Errorf("sequence: unknown kind %q", s)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindTables[k]
	return ok
}

// Table is the table holding codes for k.
func (k Kind) Table() string {
	return kindTables[k]
}

// SettingsKey is the settings namespace for k, e.g. "code.invoice".
func (k Kind) SettingsKey() string {
	return "code." + string(k)
}

func (k Kind) String() string { return string(k) }
