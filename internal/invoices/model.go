// Package invoices holds the invoice aggregate, the engine that derives its
// totals and the service that persists it.
package invoices

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/shared"
)

// Invoice is the aggregate root. Subtotal, RoundOff, Total, Paid, Due and
// Status are derived by Recompute and stored so read paths never recompute.
// CustomerCode and CustomerName are joined in on read and ignored on write.
type Invoice struct {
	ID           int64       `json:"id"`
	Code         string      `json:"code"`
	CustomerID   int64       `json:"customer_id"`
	CustomerCode string      `json:"customer_code,omitempty"`
	CustomerName string      `json:"customer_name,omitempty"`
	Date         time.Time   `json:"date"`
	Subtotal     money.Money `json:"subtotal"`
	Discount     money.Money `json:"discount"`
	RoundOff     money.Money `json:"round_off"`
	Total        money.Money `json:"total"`
	Paid         money.Money `json:"paid"`
	Due          money.Money `json:"due"`
	Status       Status      `json:"status"`
	Note         string      `json:"note,omitempty"`
	Items        []LineItem  `json:"items"`
	Payments     []Payment   `json:"payments"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// LineItem prices one product on an invoice. UnitPrice and MinimumAmount are
// copied from the product when the item is added.
type LineItem struct {
	ID            int64           `json:"id,omitempty"`
	ProductID     int64           `json:"product_id"`
	Description   string          `json:"description,omitempty"`
	Width         decimal.Decimal `json:"width"`
	Height        decimal.Decimal `json:"height"`
	UnitPrice     money.Money     `json:"unit_price"`
	Quantity      int64           `json:"quantity"`
	MinimumAmount money.Money     `json:"minimum_amount"`
	Amount        money.Money     `json:"amount"`
}

// Shortfall is how far the line falls below its minimum charge.
func (li LineItem) Shortfall() money.Money {
	if li.MinimumAmount > li.Amount {
		return li.MinimumAmount.Sub(li.Amount)
	}
	return 0
}

type Payment struct {
	ID        int64                `json:"id,omitempty"`
	Amount    money.Money          `json:"amount"`
	Method    shared.PaymentMethod `json:"method"`
	PaidOn    time.Time            `json:"paid_on"`
	Reference string               `json:"reference,omitempty"`
	Note      string               `json:"note,omitempty"`
	CreatedAt time.Time            `json:"created_at,omitempty"`
}

// Persisted reports whether the payment has been stored. Stored payments are
// never edited or removed.
func (p Payment) Persisted() bool {
	return p.ID != 0
}
