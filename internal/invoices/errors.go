package invoices

import (
	"errors"
	"fmt"

	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/platform/httpx"
)

const (
	MsgNoItems         = "at least one product required"
	MsgPaymentsExceed  = "payments exceed total"
	MsgWalkInMustPay   = "walk-in customers must pay in full"
	MsgNotNumeric      = "must be a number"
	MsgNotPositive     = "must be greater than zero"
	MsgNegative        = "must not be negative"
	MsgTooLarge        = "is too large"
	MsgTooMany         = "has too many entries"
	MsgBadDimension    = "must be below 100000000 with at most 4 decimal places"
	MsgUnknownProduct  = "product does not exist"
	MsgUnknownCustomer = "customer does not exist"
)

var (
	ErrNotFound          = fmt.Errorf("invoice %w", httpx.ErrNotFound)
	ErrPaymentNotFound   = fmt.Errorf("payment %w", httpx.ErrNotFound)
	ErrPaymentImmutable  = fmt.Errorf("%w: recorded payments cannot be changed or removed", httpx.ErrConflict)
	ErrRequestInProgress = fmt.Errorf("%w: a request with this idempotency key is still being processed", httpx.ErrConflict)
	ErrKeyReused         = fmt.Errorf("%w: idempotency key was used for another operation", httpx.ErrBadRequest)
)

// ValidationError rejects an invoice before anything is written.
type ValidationError struct {
	Field   string
	Message string
	// Excess is set when payments exceed the total.
	Excess money.Money
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return httpx.ErrValidation }

// ProblemExtensions adds the field and excess to the error response.
func (e *ValidationError) ProblemExtensions() map[string]any {
	ext := map[string]any{"message": e.Message}
	if e.Field != "" {
		ext["field"] = e.Field
	}
	if e.Excess > 0 {
		ext["excess"] = e.Excess
	}
	return ext
}

// AsValidation extracts a ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
