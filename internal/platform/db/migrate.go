package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

func gooseDB(pool *pgxpool.Pool) (*sql.DB, error) {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("platform/db: goose dialect: %w", err)
	}
	return stdlib.OpenDBFromPool(pool), nil
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	sqlDB, err := gooseDB(pool)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	if logger != nil {
		logger.Info("running database migrations")
	}
	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("platform/db: migrate up: %w", err)
	}
	return nil
}

// MigrationStatus logs the applied state of every migration.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool) error {
	sqlDB, err := gooseDB(pool)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.StatusContext(ctx, sqlDB, migrationsDir)
}
