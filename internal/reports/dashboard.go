package reports

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const dashboardDebtors = 5

// Dashboard bundles every report the landing page shows.
type Dashboard struct {
	Summary    Summary       `json:"summary"`
	ByStatus   []StatusCount `json:"by_status"`
	Aging      Aging         `json:"aging"`
	TopDebtors []Debtor      `json:"top_debtors"`
	Trend      []TrendPoint  `json:"trend"`
}

// GetDashboard loads the dashboard parts concurrently. Aging is taken as of
// the end of the range.
func (s *Service) GetDashboard(ctx context.Context, r Range) (Dashboard, error) {
	r = s.normalise(r)
	if err := r.Validate(); err != nil {
		return Dashboard{}, err
	}

	var data Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.GetSummary(ctx, r)
		if err != nil {
			return err
		}
		data.Summary = summary
		return nil
	})

	g.Go(func() error {
		rows, err := s.GetStatusBreakdown(ctx, r)
		if err != nil {
			return err
		}
		data.ByStatus = rows
		return nil
	})

	g.Go(func() error {
		aging, err := s.GetAging(ctx, r.To)
		if err != nil {
			return err
		}
		data.Aging = aging
		return nil
	})

	g.Go(func() error {
		debtors, err := s.GetTopDebtors(ctx, dashboardDebtors)
		if err != nil {
			return err
		}
		data.TopDebtors = debtors
		return nil
	})

	g.Go(func() error {
		points, err := s.GetTrend(ctx, r)
		if err != nil {
			return err
		}
		data.Trend = points
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return data, nil
}
