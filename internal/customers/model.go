package customers

import "time"

// Type separates the counter-sale walk-in customer from named customers.
type Type string

const (
	TypeRegular Type = "regular"
	TypeWalkIn  Type = "walk_in"
)

type Customer struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsWalkIn reports whether invoices for c must be paid in full.
func (c Customer) IsWalkIn() bool {
	return c.Type == TypeWalkIn
}
