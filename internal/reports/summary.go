package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/kudibooks/kudibooks/internal/money"
	"github.com/kudibooks/kudibooks/internal/platform/httpx"
)

// Range is an inclusive span of calendar days.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r Range) key() string {
	return r.From.Format(time.DateOnly) + ".." + r.To.Format(time.DateOnly)
}

// Validate rejects reversed ranges.
func (r Range) Validate() error {
	if r.To.Before(r.From) {
		return httpx.FieldErrors{"to": fmt.Sprintf("must not be before %s", r.From.Format(time.DateOnly))}
	}
	return nil
}

// normalise fills a missing start with the first of the end month and a
// missing end with today.
func (s *Service) normalise(r Range) Range {
	if r.To.IsZero() {
		r.To = s.today()
	}
	if r.From.IsZero() {
		r.From = time.Date(r.To.Year(), r.To.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return r
}

// InvoiceTotals sums the stored invoice fields over a range.
type InvoiceTotals struct {
	Count    int         `json:"count"`
	Invoiced money.Money `json:"invoiced"`
	Paid     money.Money `json:"paid"`
	Due      money.Money `json:"due"`
}

// Summary is the headline card of the dashboard. Net is cash received less
// money spent.
type Summary struct {
	Range
	InvoiceCount int         `json:"invoice_count"`
	Invoiced     money.Money `json:"invoiced"`
	Paid         money.Money `json:"paid"`
	Outstanding  money.Money `json:"outstanding"`
	Expenses     money.Money `json:"expenses"`
	Net          money.Money `json:"net"`
}

// GetSummary returns the headline figures for r.
func (s *Service) GetSummary(ctx context.Context, r Range) (Summary, error) {
	r = s.normalise(r)
	if err := r.Validate(); err != nil {
		return Summary{}, err
	}
	return fetch(ctx, s, func(ctx context.Context) (Summary, error) {
		totals, err := s.repo.InvoiceTotals(ctx, r)
		if err != nil {
			return Summary{}, fmt.Errorf("invoice totals: %w", err)
		}
		spent, err := s.repo.ExpenseTotal(ctx, r)
		if err != nil {
			return Summary{}, fmt.Errorf("expense total: %w", err)
		}
		expenses := money.FromMinor(spent)
		return Summary{
			Range:        r,
			InvoiceCount: totals.Count,
			Invoiced:     totals.Invoiced,
			Paid:         totals.Paid,
			Outstanding:  totals.Due,
			Expenses:     expenses,
			Net:          totals.Paid.Sub(expenses),
		}, nil
	}, "summary", r.key())
}

// StatusCount is one slice of the status breakdown.
type StatusCount struct {
	Status string      `json:"status"`
	Count  int         `json:"count"`
	Total  money.Money `json:"total"`
}

var statusOrder = []string{"unpaid", "partial", "paid"}

// GetStatusBreakdown counts invoices per status, listing every status even
// when empty.
func (s *Service) GetStatusBreakdown(ctx context.Context, r Range) ([]StatusCount, error) {
	r = s.normalise(r)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return fetch(ctx, s, func(ctx context.Context) ([]StatusCount, error) {
		rows, err := s.repo.StatusBreakdown(ctx, r)
		if err != nil {
			return nil, err
		}
		byStatus := make(map[string]StatusCount, len(rows))
		for _, row := range rows {
			byStatus[row.Status] = row
		}
		out := make([]StatusCount, 0, len(statusOrder))
		for _, status := range statusOrder {
			row := byStatus[status]
			row.Status = status
			out = append(out, row)
		}
		return out, nil
	}, "status", r.key())
}
