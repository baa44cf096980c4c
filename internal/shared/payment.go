package shared

import "context"

// PaymentMethod is how money changed hands.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "transfer"
	MethodPOS      PaymentMethod = "pos"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodTransfer, MethodPOS:
		return true
	}
	return false
}

// Label is the display name of m.
func (m PaymentMethod) Label() string {
	switch m {
	case MethodCash:
		return "Cash"
	case MethodTransfer:
		return "Bank Transfer"
	case MethodPOS:
		return "POS"
	}
	return string(m)
}

// Bumper invalidates a derived cache after writes. Report caches implement it.
type Bumper interface {
	Bump(ctx context.Context) error
}
