package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/kudibooks/kudibooks/internal/jobs"
	"github.com/kudibooks/kudibooks/internal/reports"
)

// KeyCleaner drops idempotency keys older than a cutoff.
// *shared.IdempotencyStore implements it.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// CleanupJob expires idempotency keys so retried requests stop replaying
// once the retention window closes.
type CleanupJob struct {
	Keys    KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes maintenance:idempotency_cleanup tasks.
func (j *CleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Keys == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload CleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := metricsOr(j.Metrics).Track(TaskIdempotencyCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskIdempotencyCleanup)
	removed, err := j.Keys.Cleanup(ctx, payload.retention())
	if err != nil {
		logger.Error("cleanup idempotency keys", slog.Any("error", err))
		return err
	}
	logger.Info("expired idempotency keys", slog.Int64("removed", removed), slog.Duration("retention", payload.retention()))
	return nil
}

// SettingsWarmer loads settings into their cache.
type SettingsWarmer interface {
	Warm(ctx context.Context) error
}

// DashboardLoader fills the report cache for a range.
type DashboardLoader interface {
	GetDashboard(ctx context.Context, r reports.Range) (reports.Dashboard, error)
}

// WarmupJob pre-populates the settings cache and, optionally, the dashboard
// of the current month.
type WarmupJob struct {
	Settings SettingsWarmer
	Reports  DashboardLoader
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// Handle processes settings:warmup tasks.
func (j *WarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Settings == nil {
		return errors.New("settings warmup: handler not configured")
	}
	var payload WarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := metricsOr(j.Metrics).Track(TaskSettingsWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskSettingsWarmup)
	if err := j.Settings.Warm(ctx); err != nil {
		logger.Error("warm settings", slog.Any("error", err))
		return err
	}
	if payload.Reports && j.Reports != nil {
		warmCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()
		if _, err := j.Reports.GetDashboard(warmCtx, reports.Range{}); err != nil {
			logger.Error("warm dashboard", slog.Any("error", err))
			return err
		}
	}
	logger.Info("caches warmed", slog.Bool("reports", payload.Reports))
	return nil
}
