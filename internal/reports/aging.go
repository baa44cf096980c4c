package reports

import (
	"context"
	"time"

	"github.com/kudibooks/kudibooks/internal/money"
)

// AgingBucket summarises outstanding dues by invoice age.
type AgingBucket struct {
	Bucket string      `json:"bucket"`
	Count  int         `json:"count"`
	Due    money.Money `json:"due"`
}

// AgingBuckets are the bucket labels in display order. Ages are whole days
// between the invoice date and the as-of date.
var AgingBuckets = []string{"current", "1-30", "31-60", "61-90", "90+"}

// BucketFor names the bucket of an invoice that is ageDays old.
func BucketFor(ageDays int) string {
	switch {
	case ageDays <= 0:
		return "current"
	case ageDays <= 30:
		return "1-30"
	case ageDays <= 60:
		return "31-60"
	case ageDays <= 90:
		return "61-90"
	default:
		return "90+"
	}
}

// Aging is the receivables aging report.
type Aging struct {
	AsOf    time.Time     `json:"as_of"`
	Buckets []AgingBucket `json:"buckets"`
	Total   money.Money   `json:"total"`
}

// GetAging groups unpaid dues by age as of asOf, defaulting to today.
func (s *Service) GetAging(ctx context.Context, asOf time.Time) (Aging, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	return fetch(ctx, s, func(ctx context.Context) (Aging, error) {
		rows, err := s.repo.Aging(ctx, asOf)
		if err != nil {
			return Aging{}, err
		}
		return fillAging(asOf, rows), nil
	}, "aging", asOf.Format(time.DateOnly))
}

func fillAging(asOf time.Time, rows []AgingBucket) Aging {
	byBucket := make(map[string]AgingBucket, len(rows))
	for _, row := range rows {
		byBucket[row.Bucket] = row
	}
	out := Aging{AsOf: asOf, Buckets: make([]AgingBucket, 0, len(AgingBuckets))}
	for _, name := range AgingBuckets {
		b := byBucket[name]
		b.Bucket = name
		out.Buckets = append(out.Buckets, b)
		out.Total = out.Total.Add(b.Due)
	}
	return out
}

// Debtor is a customer with money outstanding.
type Debtor struct {
	CustomerID int64       `json:"customer_id"`
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	Invoices   int         `json:"invoices"`
	Due        money.Money `json:"due"`
}

// GetTopDebtors lists the customers owing the most.
func (s *Service) GetTopDebtors(ctx context.Context, limit int) ([]Debtor, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return fetch(ctx, s, func(ctx context.Context) ([]Debtor, error) {
		return s.repo.TopDebtors(ctx, limit)
	}, "debtors", formatInt(int64(limit)))
}
