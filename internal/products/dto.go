package products

import "github.com/kudibooks/kudibooks/internal/money"

type CreateProductRequest struct {
	Name          string      `json:"name" validate:"required,max=200"`
	Unit          string      `json:"unit,omitempty" validate:"omitempty,max=30"`
	UnitPrice     money.Money `json:"unit_price" validate:"gte=0"`
	MinimumAmount money.Money `json:"minimum_amount" validate:"gte=0"`
}

type UpdateProductRequest struct {
	Name          *string      `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Unit          *string      `json:"unit,omitempty" validate:"omitempty,max=30"`
	UnitPrice     *money.Money `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	MinimumAmount *money.Money `json:"minimum_amount,omitempty" validate:"omitempty,gte=0"`
	Active        *bool        `json:"active,omitempty"`
}

type ListProductsRequest struct {
	Search string
	Active *bool
	Limit  int
	Offset int
}
