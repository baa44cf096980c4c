package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/kudibooks/kudibooks/internal/platform/httpx"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 2,
			QueueMail:    1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("task failed", slog.String("type", task.Type()), slog.Any("error", err))
		}),
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, fmt.Errorf("register %s: %w", entry.Task.Type(), err)
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: logger}, nil
}

// DefaultSchedule is the cron table of the worker: nightly key cleanup and an
// early morning cache warmup.
func DefaultSchedule() ([]CronRegistration, error) {
	cleanup, err := NewCleanupTask(0)
	if err != nil {
		return nil, err
	}
	warmup, err := NewWarmupTask(true)
	if err != nil {
		return nil, err
	}
	return []CronRegistration{
		{Spec: "0 3 * * *", Task: cleanup, Options: []asynq.Option{asynq.MaxRetry(3)}},
		{Spec: "30 5 * * *", Task: warmup, Options: []asynq.Option{asynq.MaxRetry(3)}},
	}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// enqueuer is the part of *asynq.Client the Client uses.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits jobs to the queue.
type Client struct {
	client enqueuer
	logger *slog.Logger
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt, logger *slog.Logger) *Client {
	return newClient(asynq.NewClient(redisOpts), logger)
}

func newClient(e enqueuer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{client: e, logger: logger}
}

// EnqueueReceipt schedules the receipt email of a settled invoice. A receipt
// already pending for the invoice is left alone.
func (c *Client) EnqueueReceipt(ctx context.Context, invoiceID int64) error {
	task, err := NewReceiptTask(invoiceID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		c.logger.Debug("receipt already queued", slog.Int64("invoice_id", invoiceID))
		return nil
	}
	return err
}

// EnqueueRecompute schedules a recompute of one invoice, or all when
// invoiceID is 0.
func (c *Client) EnqueueRecompute(ctx context.Context, invoiceID int64) (*asynq.TaskInfo, error) {
	task, err := NewRecomputeTask(invoiceID)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.TaskID(uuid.NewString()))
}

// Trigger enqueues a supported job by name with its default payload.
func (c *Client) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs: client not configured")
	}
	var task *asynq.Task
	var err error
	switch name {
	case TaskInvoicesRecompute:
		return c.EnqueueRecompute(ctx, 0)
	case TaskIdempotencyCleanup:
		task, err = NewCleanupTask(0)
	case TaskSettingsWarmup:
		task, err = NewWarmupTask(true)
	default:
		return nil, fmt.Errorf("jobs: unsupported job %q (want one of %s)", name, strings.Join(Triggerable(), ", "))
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.TaskID(uuid.NewString()), asynq.MaxRetry(3))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// queueInspector is the part of *asynq.Inspector the Handler reads.
type queueInspector interface {
	Queues() ([]string, error)
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector queueInspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints. inspector is
// usually an *asynq.Inspector; nil reports empty queues.
func NewHandler(inspector queueInspector, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/queues", h.queues)
}

// QueueStats summarises one queue.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Processed int    `json:"processed_today"`
	Failed    int    `json:"failed_today"`
	Paused    bool   `json:"paused"`
}

func statsOf(info *asynq.QueueInfo) QueueStats {
	return QueueStats{
		Queue:     info.Queue,
		Pending:   info.Pending,
		Active:    info.Active,
		Scheduled: info.Scheduled,
		Retry:     info.Retry,
		Archived:  info.Archived,
		Processed: info.Processed,
		Failed:    info.Failed,
		Paused:    info.Paused,
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, QueueStats{Queue: QueueDefault})
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: queue unavailable", httpx.ErrUnavailable))
		return
	}
	httpx.JSON(w, http.StatusOK, statsOf(info))
}

func (h *Handler) queues(w http.ResponseWriter, r *http.Request) {
	out := []QueueStats{}
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, out)
		return
	}
	names, err := h.inspector.Queues()
	if err != nil {
		h.logger.Warn("list queues", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: queues unavailable", httpx.ErrUnavailable))
		return
	}
	slices.Sort(names)
	for _, name := range names {
		info, err := h.inspector.GetQueueInfo(name)
		if err != nil {
			h.logger.Warn("queue info", slog.String("queue", name), slog.Any("error", err))
			continue
		}
		out = append(out, statsOf(info))
	}
	httpx.JSON(w, http.StatusOK, out)
}
