package expenses

import (
	"time"

	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/shared"
)

type CreateExpenseRequest struct {
	Category    string               `json:"category" validate:"required,max=100"`
	Amount      money.Money          `json:"amount" validate:"gt=0"`
	Date        string               `json:"date" validate:"required,datetime=2006-01-02"`
	Method      shared.PaymentMethod `json:"method" validate:"required,oneof=cash transfer pos"`
	Description string               `json:"description,omitempty" validate:"omitempty,max=500"`
}

type UpdateExpenseRequest struct {
	Category    *string               `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	Amount      *money.Money          `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Date        *string               `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Method      *shared.PaymentMethod `json:"method,omitempty" validate:"omitempty,oneof=cash transfer pos"`
	Description *string               `json:"description,omitempty" validate:"omitempty,max=500"`
}

type ListExpensesRequest struct {
	Category string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
