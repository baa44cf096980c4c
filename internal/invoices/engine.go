package invoices

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kudibooks/kudibooks/internal/money"
)

// DefaultGranularity is the rounding step of invoice totals in minor units.
const DefaultGranularity money.Money = 100

// paidTolerance absorbs one minor unit of rounding when comparing paid
// against total.
const paidTolerance money.Money = 1

// MaxAmount caps every stored amount (line, minimum, discount, payment) so
// that sums over a full invoice stay inside int64.
const MaxAmount money.Money = 1_000_000_000_000_000

// Line and payment counts per invoice.
const (
	MaxItems    = 500
	MaxPayments = 100
)

// Dimensions are stored as NUMERIC(12,4).
const dimensionPlaces = 4

var maxDimension = decimal.NewFromInt(100_000_000)

// LineAmount is width × height × unitPrice × quantity rounded half away from
// zero to whole minor units. Callers must reject lines whose exact product
// exceeds MaxAmount first; Validate does.
func LineAmount(width, height decimal.Decimal, unitPrice money.Money, quantity int64) money.Money {
	return money.FromMinor(lineProduct(width, height, unitPrice, quantity).IntPart())
}

func lineProduct(width, height decimal.Decimal, unitPrice money.Money, quantity int64) decimal.Decimal {
	return width.
		Mul(height).
		Mul(decimal.NewFromInt(unitPrice.Minor())).
		Mul(decimal.NewFromInt(quantity)).
		Round(0)
}

// checkDimension accepts what NUMERIC(12,4) stores without rounding.
func checkDimension(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return &ValidationError{Field: field, Message: MsgNotPositive}
	}
	if !d.Equal(d.Round(dimensionPlaces)) || d.GreaterThanOrEqual(maxDimension) {
		return &ValidationError{Field: field, Message: MsgBadDimension}
	}
	return nil
}

func checkAmount(field string, m money.Money) error {
	if m > MaxAmount {
		return &ValidationError{Field: field, Message: MsgTooLarge}
	}
	return nil
}

// RecomputeLineAmount refreshes item.Amount from its inputs. Zero dimensions
// are treated as the default of 1.
func RecomputeLineAmount(item *LineItem) {
	if item.Width.IsZero() {
		item.Width = decimal.NewFromInt(1)
	}
	if item.Height.IsZero() {
		item.Height = decimal.NewFromInt(1)
	}
	item.Amount = LineAmount(item.Width, item.Height, item.UnitPrice, item.Quantity)
}

// RoundTo rounds v to the nearest multiple of step, halves away from zero.
func RoundTo(v, step money.Money) money.Money {
	if step <= 0 {
		return v
	}
	q, r := v/step, v%step
	if r.Abs()*2 >= step {
		if v < 0 {
			q--
		} else {
			q++
		}
	}
	return q * step
}

// RecomputeInvoiceTotals derives subtotal, round-off and total from the line
// amounts, the discount and the per-line minimum charges, then refreshes the
// payment totals. Line amounts are taken as they are.
func RecomputeInvoiceTotals(inv *Invoice, granularity money.Money) {
	var subtotal, adjustments money.Money
	for _, item := range inv.Items {
		subtotal = subtotal.Add(item.Amount)
		adjustments = adjustments.Add(item.Shortfall())
	}
	if inv.Discount < 0 {
		inv.Discount = 0
	}

	final := subtotal.Sub(inv.Discount).Add(adjustments)
	rounded := RoundTo(final, granularity)

	inv.Subtotal = subtotal
	inv.RoundOff = rounded.Sub(final)
	inv.Total = rounded
	RecomputePaymentTotals(inv)
}

// RecomputePaymentTotals derives paid, due and status.
func RecomputePaymentTotals(inv *Invoice) {
	var paid money.Money
	for _, p := range inv.Payments {
		if p.Amount > 0 {
			paid = paid.Add(p.Amount)
		}
	}
	inv.Paid = paid
	inv.Due = money.Max(0, inv.Total.Sub(paid))
	inv.Status = deriveStatus(paid, inv.Due)
}

func deriveStatus(paid, due money.Money) Status {
	switch {
	case paid == 0:
		return StatusUnpaid
	case due <= paidTolerance:
		return StatusPaid
	default:
		return StatusPartial
	}
}

// Recompute refreshes every derived field of inv. It is deterministic and
// running it twice changes nothing.
func Recompute(inv *Invoice, granularity money.Money) {
	for i := range inv.Items {
		RecomputeLineAmount(&inv.Items[i])
	}
	RecomputeInvoiceTotals(inv, granularity)
}

// Validate checks a recomputed invoice before it is stored. walkIn marks a
// counter-sale customer, whose invoices must be settled on the spot.
func Validate(inv *Invoice, walkIn bool) error {
	if len(inv.Items) == 0 {
		return &ValidationError{Field: "items", Message: MsgNoItems}
	}
	if len(inv.Items) > MaxItems {
		return &ValidationError{Field: "items", Message: MsgTooMany}
	}
	for i, item := range inv.Items {
		if item.Quantity <= 0 {
			return &ValidationError{Field: itemField(i, "quantity"), Message: MsgNotPositive}
		}
		if err := checkDimension(itemField(i, "width"), item.Width); err != nil {
			return err
		}
		if err := checkDimension(itemField(i, "height"), item.Height); err != nil {
			return err
		}
		if item.UnitPrice < 0 {
			return &ValidationError{Field: itemField(i, "unit_price"), Message: MsgNegative}
		}
		if err := checkAmount(itemField(i, "minimum_amount"), item.MinimumAmount); err != nil {
			return err
		}
		exact := lineProduct(item.Width, item.Height, item.UnitPrice, item.Quantity)
		if exact.GreaterThan(decimal.NewFromInt(MaxAmount.Minor())) {
			return &ValidationError{Field: itemField(i, "amount"), Message: MsgTooLarge}
		}
	}
	if err := checkAmount("discount", inv.Discount); err != nil {
		return err
	}

	if len(inv.Payments) > MaxPayments {
		return &ValidationError{Field: "payments", Message: MsgTooMany}
	}
	var sum money.Money
	for i, p := range inv.Payments {
		field := fmt.Sprintf("payments[%d].amount", i)
		if p.Amount <= 0 {
			return &ValidationError{Field: field, Message: MsgNotPositive}
		}
		if err := checkAmount(field, p.Amount); err != nil {
			return err
		}
		sum = sum.Add(p.Amount)
	}
	if sum > inv.Total {
		return &ValidationError{Field: "payments", Message: MsgPaymentsExceed, Excess: sum.Sub(inv.Total)}
	}
	if walkIn {
		if len(inv.Payments) == 0 || inv.Total.Sub(sum).Abs() > paidTolerance {
			return &ValidationError{Field: "payments", Message: MsgWalkInMustPay}
		}
	}
	return nil
}

// AddItem appends an item and recomputes.
func (inv *Invoice) AddItem(item LineItem, granularity money.Money) {
	inv.Items = append(inv.Items, item)
	Recompute(inv, granularity)
}

// RemoveItem drops the item at index i and recomputes.
func (inv *Invoice) RemoveItem(i int, granularity money.Money) error {
	if i < 0 || i >= len(inv.Items) {
		return fmt.Errorf("invoices: item index %d out of range", i)
	}
	inv.Items = append(inv.Items[:i], inv.Items[i+1:]...)
	Recompute(inv, granularity)
	return nil
}

// AddPayment appends an unsaved payment and refreshes payment totals.
func (inv *Invoice) AddPayment(p Payment) {
	p.ID = 0
	inv.Payments = append(inv.Payments, p)
	RecomputePaymentTotals(inv)
}

// RemovePayment drops an unsaved payment. Recorded payments are refused.
func (inv *Invoice) RemovePayment(i int) error {
	if i < 0 || i >= len(inv.Payments) {
		return fmt.Errorf("invoices: payment index %d out of range", i)
	}
	if inv.Payments[i].Persisted() {
		return ErrPaymentImmutable
	}
	inv.Payments = append(inv.Payments[:i], inv.Payments[i+1:]...)
	RecomputePaymentTotals(inv)
	return nil
}
