package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/kudibooks/kudibooks/internal/app"
	"github.com/kudibooks/kudibooks/internal/observability"
	"github.com/kudibooks/kudibooks/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	backends, err := app.OpenBackends(ctx, cfg, logger)
	if err != nil {
		logger.Error("open backends", slog.Any("error", err))
		os.Exit(1)
	}
	defer backends.Close(logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts, logger)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	services, err := app.NewServices(cfg, logger, backends, app.ServiceOptions{
		Metrics:  metrics,
		Receipts: jobClient,
	})
	if err != nil {
		logger.Error("wire services", slog.Any("error", err))
		os.Exit(1)
	}

	jobMetrics := metrics.Jobs()
	recompute := jobs.NewRecomputeJob(services.Invoices, logger, jobMetrics)
	receipts := &jobs.ReceiptJob{
		Invoices:  services.Invoices,
		Customers: services.Customers,
		Settings:  services.Settings,
		Mailer: &jobs.SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		},
		Logger:  logger,
		Metrics: jobMetrics,
	}
	cleanup := &jobs.CleanupJob{Keys: services.Idempotency, Logger: logger, Metrics: jobMetrics}
	warmup := &jobs.WarmupJob{Settings: services.Settings, Reports: services.Reports, Logger: logger, Metrics: jobMetrics}

	schedule, err := jobs.DefaultSchedule()
	if err != nil {
		logger.Error("build schedule", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInvoicesRecompute, Handler: recompute.Handle},
			{Type: jobs.TaskInvoicesReceipt, Handler: receipts.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanup.Handle},
			{Type: jobs.TaskSettingsWarmup, Handler: warmup.Handle},
		},
		Cron: schedule,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
