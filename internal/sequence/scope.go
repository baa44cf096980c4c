package sequence

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxWidth bounds zero padding to what fits an int64 suffix.
const MaxWidth = 18

// Scope describes how codes of one kind are shaped.
type Scope struct {
	Kind   Kind
	Prefix string
	Width  int
}

// DefaultScopes are used when settings do not override the prefix or width.
var DefaultScopes = map[Kind]Scope{
	KindCustomer: {Kind: KindCustomer, Prefix: "CU-", Width: 4},
	KindProduct:  {Kind: KindProduct, Prefix: "PR-", Width: 4},
	KindInvoice:  {Kind: KindInvoice, Prefix: "IN-", Width: 5},
	KindExpense:  {Kind: KindExpense, Prefix: "EX-", Width: 5},
}

// DefaultScope returns the built-in scope for kind.
func DefaultScope(kind Kind) Scope {
	return DefaultScopes[kind]
}

// Validate checks the scope can produce parseable codes.
func (s Scope) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("sequence: unknown kind %q", s.Kind)
	}
	if strings.TrimSpace(s.Prefix) == "" {
		return fmt.Errorf("sequence: empty prefix for %s", s.Kind)
	}
	if s.Width < 1 || s.Width > MaxWidth {
		return fmt.Errorf("sequence: width %d out of range for %s", s.Width, s.Kind)
	}
	return nil
}

// Format renders n zero-padded to the scope width. Numbers wider than the
// width are rendered in full.
func (s Scope) Format(n int64) string {
	return s.Prefix + fmt.Sprintf("%0*d", s.Width, n)
}

// ParseSuffix extracts the numeric suffix of code. It reports false when the
// code has another prefix or a suffix that is not a plain decimal number.
func (s Scope) ParseSuffix(code string) (int64, bool) {
	if !strings.HasPrefix(code, s.Prefix) {
		return 0, false
	}
	suffix := code[len(s.Prefix):]
	if suffix == "" {
		return 0, false
	}
	for i := 0; i < len(suffix); i++ {
		if suffix[i] < '0' || suffix[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
