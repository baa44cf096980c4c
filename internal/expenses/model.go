package expenses

import (
	"time"

	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/shared"
)

type Expense struct {
	ID          int64                `json:"id"`
	Code        string               `json:"code"`
	Category    string               `json:"category"`
	Amount      money.Money          `json:"amount"`
	Date        time.Time            `json:"date"`
	Method      shared.PaymentMethod `json:"method"`
	Description string               `json:"description,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}
