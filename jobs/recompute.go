package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kudibooks/kudibooks/internal/invoices"
	jobmetrics "github.com/kudibooks/kudibooks/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Recalculator re-derives stored invoice figures. *invoices.Service
// implements it.
type Recalculator interface {
	Recalculate(ctx context.Context, id int64) (bool, error)
	RecalculateAll(ctx context.Context) (checked, changed int, err error)
}

// RecomputeJob repairs the derived fields of stored invoices. Running it
// twice changes nothing the second time.
type RecomputeJob struct {
	Invoices Recalculator
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewRecomputeJob wires dependencies for the recompute handler.
func NewRecomputeJob(invoices Recalculator, logger *slog.Logger, metrics *jobmetrics.Metrics) *RecomputeJob {
	return &RecomputeJob{Invoices: invoices, Logger: logger, Metrics: metrics}
}

// Handle processes invoices:recompute tasks.
func (j *RecomputeJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Invoices == nil {
		return errors.New("invoice recompute: handler not configured")
	}
	var payload RecomputePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	metrics := metricsOr(j.Metrics)
	tracker := metrics.Track(TaskInvoicesRecompute)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskInvoicesRecompute)
	start := time.Now()

	if payload.InvoiceID > 0 {
		changed, err := j.Invoices.Recalculate(ctx, payload.InvoiceID)
		if errors.Is(err, invoices.ErrNotFound) {
			logger.Warn("invoice vanished before recompute", slog.Int64("invoice_id", payload.InvoiceID))
			return nil
		}
		if err != nil {
			logger.Error("recompute invoice", slog.Int64("invoice_id", payload.InvoiceID), slog.Any("error", err))
			return err
		}
		metrics.AddRecomputed(changed, 1)
		logger.Info("recomputed invoice", slog.Int64("invoice_id", payload.InvoiceID), slog.Bool("changed", changed))
		return nil
	}

	checked, changed, err := j.Invoices.RecalculateAll(ctx)
	metrics.AddRecomputed(true, changed)
	metrics.AddRecomputed(false, checked-changed)
	if err != nil {
		logger.Error("recompute invoices", slog.Int("checked", checked), slog.Any("error", err))
		return err
	}
	logger.Info("recomputed invoices",
		slog.Int("checked", checked),
		slog.Int("changed", changed),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func metricsOr(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}
