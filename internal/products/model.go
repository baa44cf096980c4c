package products

import (
	"time"

	"github.com/kudibooks/kudibooks/internal/money"
)

// Product is a sellable item. Prices are per unit of width × height × quantity.
type Product struct {
	ID            int64       `json:"id"`
	Code          string      `json:"code"`
	Name          string      `json:"name"`
	Unit          string      `json:"unit,omitempty"`
	UnitPrice     money.Money `json:"unit_price"`
	MinimumAmount money.Money `json:"minimum_amount"`
	Active        bool        `json:"active"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
