package customers

type CreateCustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Type    Type   `json:"type,omitempty" validate:"omitempty,oneof=regular walk_in"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type ListCustomersRequest struct {
	Search string
	Type   Type
	Limit  int
	Offset int
}
