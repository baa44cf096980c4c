package invoices

import "fmt"

// Status is the payment state of an invoice.
type Status string

const (
	StatusUnpaid  Status = "unpaid"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
)

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusUnpaid, StatusPartial, StatusPaid}
}

// Badge is how a status is shown to people.
type Badge struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var badges = [...]Badge{
	{Label: "Unpaid", Color: "danger", Icon: "heroicon-o-x-circle"},
	{Label: "Partially Paid", Color: "warning", Icon: "heroicon-o-clock"},
	{Label: "Paid", Color: "success", Icon: "heroicon-o-check-circle"},
}

func (s Status) index() int {
	switch s {
	case StatusUnpaid:
		return 0
	case StatusPartial:
		return 1
	case StatusPaid:
		return 2
	}
	return -1
}

func (s Status) Valid() bool { return s.index() >= 0 }

// Badge returns the presentation of s. It panics on an unknown status, which
// can only come from a bypassed constructor.
func (s Status) Badge() Badge {
	i := s.index()
	if i < 0 {
		panic(fmt.Sprintf("invoices: unknown status %q", string(s)))
	}
	return badges[i]
}

func (s Status) Label() string { return s.Badge().Label }
func (s Status) Color() string { return s.Badge().Color }
func (s Status) Icon() string { return s.Badge().Icon }

// ParseStatus accepts the stored form of a status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("invoices: unknown status %q", v)
	}
	return s, nil
}
