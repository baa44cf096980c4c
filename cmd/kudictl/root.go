package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kudibooks/kudibooks/internal/app"
	"github.com/kudibooks/kudibooks/jobs"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kudictl",
		Short:         "Operate a Kudibooks installation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("env-file", "", "load environment variables from this file before reading configuration")
	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newCodeCmd(),
		newJobsCmd(),
		newInvoiceCmd(),
	)
	return root
}

// runtime is the wired application a command works against.
type runtime struct {
	cfg      *app.Config
	logger   *slog.Logger
	backends *app.Backends
	services *app.Services
	jobs     *jobs.Client
}

func (r *runtime) Close() {
	if r.jobs != nil {
		_ = r.jobs.Close()
	}
	r.backends.Close(r.logger)
}

// loadConfig applies --env-file and reads the environment.
func loadConfig(cmd *cobra.Command) (*app.Config, *slog.Logger, error) {
	if path, _ := cmd.Flags().GetString("env-file"); path != "" {
		if err := godotenv.Overload(path); err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	// The CLI writes results to stdout; logs go to stderr.
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	if cfg.LogLevel == "debug" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return cfg, slog.New(handler), nil
}

func openRuntime(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	backends, err := app.OpenBackends(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, logger)
	services, err := app.NewServices(cfg, logger, backends, app.ServiceOptions{Receipts: client})
	if err != nil {
		_ = client.Close()
		backends.Close(logger)
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, backends: backends, services: services, jobs: client}, nil
}
