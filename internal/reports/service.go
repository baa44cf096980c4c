// Package reports aggregates invoices and expenses into dashboard figures.
// Results are cached in Redis under a versioned namespace that every invoice
// or expense write bumps.
package reports

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kudibooks/kudibooks/internal/platform/cache"
)

// CacheNamespace is the Redis namespace of report results.
const CacheNamespace = "reports"

// Repository exposes the aggregate queries reports rely on.
type Repository interface {
	InvoiceTotals(ctx context.Context, r Range) (InvoiceTotals, error)
	ExpenseTotal(ctx context.Context, r Range) (int64, error)
	StatusBreakdown(ctx context.Context, r Range) ([]StatusCount, error)
	Aging(ctx context.Context, asOf time.Time) ([]AgingBucket, error)
	TopDebtors(ctx context.Context, limit int) ([]Debtor, error)
	MonthlyTrend(ctx context.Context, r Range) ([]TrendPoint, error)
}

// Service coordinates report queries with the cache layer.
type Service struct {
	repo   Repository
	cache  *cache.Versioned
	group  singleflight.Group
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a Repository with a cache. A nil cache disables caching.
func NewService(repo Repository, cache *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// Bump invalidates every cached report.
func (s *Service) Bump(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// fetch serves a report from the cache, loading it on a miss. Identical
// concurrent requests share one load.
func fetch[T any](ctx context.Context, s *Service, load func(context.Context) (T, error), parts ...string) (T, error) {
	var zero T
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		return load(ctx)
	}

	ch := s.group.DoChan(key, func() (any, error) {
		var out T
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return load(ctx)
		})
		return out, err
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (s *Service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
