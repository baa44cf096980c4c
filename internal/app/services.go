package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kudibooks/kudibooks/internal/customers"
	"github.com/kudibooks/kudibooks/internal/expenses"
	"github.com/kudibooks/kudibooks/internal/invoices"
	"github.com/kudibooks/kudibooks/internal/observability"
	"github.com/kudibooks/kudibooks/internal/platform/cache"
	"github.com/kudibooks/kudibooks/internal/platform/db"
	"github.com/kudibooks/kudibooks/internal/products"
	"github.com/kudibooks/kudibooks/internal/reports"
	"github.com/kudibooks/kudibooks/internal/sequence"
	"github.com/kudibooks/kudibooks/internal/settings"
	"github.com/kudibooks/kudibooks/internal/shared"
)

// Backends are the shared connections every command opens.
type Backends struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

// OpenBackends connects to Postgres and Redis. An unreachable Redis is
// logged and tolerated because every cache falls back to the database.
func OpenBackends(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backends, error) {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGLockTimeout)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}
	client, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, caches disabled", slog.Any("error", err))
		client = nil
	}
	return &Backends{Pool: pool, Redis: client}, nil
}

// Close releases the connections.
func (b *Backends) Close(logger *slog.Logger) {
	if b == nil {
		return
	}
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if b.Pool != nil {
		b.Pool.Close()
	}
}

// Services is the wired domain layer shared by the server, the worker and
// the admin CLI.
type Services struct {
	Codes       *sequence.Generator
	Settings    *settings.Service
	Customers   *customers.Service
	Products    *products.Service
	Invoices    *invoices.Service
	Expenses    *expenses.Service
	Reports     *reports.Service
	Idempotency *shared.IdempotencyStore
	Audit       *shared.AuditLogger
}

// ServiceOptions carries the optional collaborators of NewServices.
type ServiceOptions struct {
	Metrics  *observability.Metrics
	Receipts invoices.ReceiptQueue
}

// NewServices builds every domain service on top of b.
func NewServices(cfg *Config, logger *slog.Logger, b *Backends, opts ServiceOptions) (*Services, error) {
	if b == nil || b.Pool == nil {
		return nil, errors.New("app: database pool required")
	}
	var recorder sequence.Recorder
	var saves invoices.SaveRecorder
	if opts.Metrics != nil {
		recorder = opts.Metrics
		saves = opts.Metrics
	}

	audit := shared.NewAuditLogger(b.Pool)
	idempotency := shared.NewIdempotencyStore(b.Pool)
	codes := sequence.NewGenerator(sequence.NewPGRunner(b.Pool), cfg.CodegenPolicy(), recorder, logger)

	settingsSvc := settings.NewService(
		settings.NewRepository(b.Pool),
		settings.NewCache(b.Redis, cfg.SettingsCacheTTL),
		logger,
	)
	reportsSvc := reports.NewService(
		reports.NewRepository(b.Pool),
		cache.NewVersioned(b.Redis, reports.CacheNamespace, cfg.ReportsCacheTTL),
		logger,
	)
	customersSvc := customers.NewService(customers.NewRepository(b.Pool), codes, settingsSvc, audit, logger)
	productsSvc := products.NewService(products.NewRepository(b.Pool), codes, settingsSvc, audit, logger)
	expensesSvc := expenses.NewService(expenses.NewRepository(b.Pool), codes, settingsSvc, audit, reportsSvc, logger)

	deps := invoices.Dependencies{
		Repo:        invoices.NewRepository(b.Pool),
		Codes:       codes,
		Settings:    settingsSvc,
		Customers:   customersSvc,
		Catalog:     productsSvc,
		Audit:       audit,
		Reports:     reportsSvc,
		Idempotency: idempotency,
		Metrics:     saves,
		Logger:      logger,
	}
	if opts.Receipts != nil {
		deps.Receipts = opts.Receipts
	}

	return &Services{
		Codes:       codes,
		Settings:    settingsSvc,
		Customers:   customersSvc,
		Products:    productsSvc,
		Invoices:    invoices.NewService(deps),
		Expenses:    expensesSvc,
		Reports:     reportsSvc,
		Idempotency: idempotency,
		Audit:       audit,
	}, nil
}

// Handlers builds the HTTP handlers of s.
func (s *Services) Handlers(logger *slog.Logger) RouterParams {
	return RouterParams{
		Logger:           logger,
		SettingsHandler:  settings.NewHandler(logger, s.Settings),
		CustomersHandler: customers.NewHandler(logger, s.Customers),
		ProductsHandler:  products.NewHandler(logger, s.Products),
		InvoicesHandler:  invoices.NewHandler(logger, s.Invoices),
		ExpensesHandler:  expenses.NewHandler(logger, s.Expenses),
		ReportsHandler:   reports.NewHandler(logger, s.Reports, s.Settings),
	}
}

// Scope resolves the configured code scope of kind.
func (s *Services) Scope(ctx context.Context, kind sequence.Kind) (sequence.Scope, error) {
	snap, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return sequence.Scope{}, err
	}
	return snap.Scope(kind), nil
}
