package invoices

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/shared"
)

// NumberInput keeps the raw text of a JSON number or numeric string so that
// unparsable input is reported instead of read as zero.
type NumberInput string

func (n *NumberInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumberInput(s)
		return nil
	}
	*n = NumberInput(data)
	return nil
}

// Decimal parses n, returning def when n is empty.
func (n NumberInput) Decimal(field string, def decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(string(n)) == "" {
		return def, nil
	}
	d, err := money.ParseDecimal(string(n))
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Message: MsgNotNumeric}
	}
	return d, nil
}

type ItemInput struct {
	ProductID     int64        `json:"product_id" validate:"required,gt=0"`
	Description   string       `json:"description,omitempty" validate:"max=255"`
	Width         NumberInput  `json:"width,omitempty"`
	Height        NumberInput  `json:"height,omitempty"`
	Quantity      int64        `json:"quantity" validate:"required,gt=0,lte=1000000000"`
	UnitPrice     *money.Money `json:"unit_price,omitempty" validate:"omitempty,gte=0,lte=1000000000000000"`
	MinimumAmount *money.Money `json:"minimum_amount,omitempty" validate:"omitempty,gte=0,lte=1000000000000000"`
}

type PaymentInput struct {
	Amount    money.Money          `json:"amount" validate:"gt=0,lte=1000000000000000"`
	Method    shared.PaymentMethod `json:"method" validate:"required,oneof=cash transfer pos"`
	PaidOn    string               `json:"paid_on,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Reference string               `json:"reference,omitempty" validate:"max=100"`
	Note      string               `json:"note,omitempty" validate:"max=500"`
}

// toPayment converts the i-th payment input, dating it def when no date was
// given.
func (p PaymentInput) toPayment(i int, def time.Time) (Payment, error) {
	paidOn := def
	if p.PaidOn != "" {
		t, err := parseDate(fmt.Sprintf("payments[%d].paid_on", i), p.PaidOn)
		if err != nil {
			return Payment{}, err
		}
		paidOn = t
	}
	return Payment{
		Amount:    p.Amount,
		Method:    p.Method,
		PaidOn:    paidOn,
		Reference: strings.TrimSpace(p.Reference),
		Note:      strings.TrimSpace(p.Note),
	}, nil
}

type CreateInvoiceRequest struct {
	CustomerID int64          `json:"customer_id" validate:"required,gt=0"`
	Date       string         `json:"date" validate:"required,datetime=2006-01-02"`
	Discount   money.Money    `json:"discount" validate:"gte=0,lte=1000000000000000"`
	Note       string         `json:"note,omitempty" validate:"max=1000"`
	Items      []ItemInput    `json:"items" validate:"max=500,dive"`
	Payments   []PaymentInput `json:"payments,omitempty" validate:"max=100,dive"`
}

// UpdateInvoiceRequest replaces the fields it carries. Items, when present,
// replace every line. Payments are appended to the recorded ones.
type UpdateInvoiceRequest struct {
	CustomerID *int64         `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	Date       *string        `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Discount   *money.Money   `json:"discount,omitempty" validate:"omitempty,gte=0,lte=1000000000000000"`
	Note       *string        `json:"note,omitempty" validate:"omitempty,max=1000"`
	Items      []ItemInput    `json:"items,omitempty" validate:"omitempty,max=500,dive"`
	Payments   []PaymentInput `json:"payments,omitempty" validate:"max=100,dive"`
}

type ListInvoicesRequest struct {
	CustomerID int64
	Status     Status
	Search     string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

func parseDate(field, v string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Message: "must be a date in YYYY-MM-DD form"}
	}
	return t, nil
}

func itemField(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}
