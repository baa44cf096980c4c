package reports

import (
	"context"
	"strconv"

	"github.com/kudibooks/kudibooks/internal/money"
)

// TrendPoint is one month of activity.
type TrendPoint struct {
	Period   string      `json:"period"`
	Invoiced money.Money `json:"invoiced"`
	Paid     money.Money `json:"paid"`
	Expenses money.Money `json:"expenses"`
}

// GetTrend returns one point per calendar month touched by r.
func (s *Service) GetTrend(ctx context.Context, r Range) ([]TrendPoint, error) {
	r = s.normalise(r)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return fetch(ctx, s, func(ctx context.Context) ([]TrendPoint, error) {
		return s.repo.MonthlyTrend(ctx, r)
	}, "trend", r.key())
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
