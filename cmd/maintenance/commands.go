package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/shop-backend/config"
	"github.com/ErlanBelekov/shop-backend/internal/health"
	"github.com/ErlanBelekov/shop-backend/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/shop-backend/internal/log"
	"github.com/ErlanBelekov/shop-backend/internal/maintenance"
	"github.com/ErlanBelekov/shop-backend/internal/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	grace time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "maintenance",
		Short:         "Database cleanup jobs for the shop backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().DurationVar(&opts.grace, "grace", 0,
		"keep refresh tokens this long past expiry (default REFRESH_PURGE_GRACE_DAYS)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newPurgeCommand(opts))
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run cleanup jobs on their cron schedules until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := setup(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer env.pool.Close()

			metrics.Register()
			checker := health.NewChecker(env.logger, prometheus.DefaultRegisterer,
				health.Dependency{Name: "postgres", Pinger: env.pool})
			metricsSrv := metrics.NewServer(":"+env.cfg.MetricsPort, checker)
			go func() {
				env.logger.Info("metrics server started", "port", env.cfg.MetricsPort)
				if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					env.logger.Error("metrics server", "error", err)
				}
			}()

			sched := maintenance.NewScheduler(env.logger)
			if err := sched.Add(ctx, env.cfg.RefreshPurgeCron, env.purge); err != nil {
				return err
			}
			sched.Start(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				env.logger.Error("metrics server shutdown", "error", err)
			}
			return nil
		},
	}
}

func newPurgeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-refresh-tokens",
		Short: "Delete expired refresh tokens once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer env.pool.Close()

			return runPurge(cmd.Context(), env.purge, cmd.OutOrStdout(), env.logger)
		},
	}
}

func runPurge(ctx context.Context, job maintenance.Job, out io.Writer, logger *slog.Logger) error {
	removed, err := maintenance.RunOnce(ctx, job, logger)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s: removed %d\n", job.Name(), removed)
	return err
}

type runtimeEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	purge  *maintenance.RefreshTokenPurge
}

func setup(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*runtimeEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := ctxlog.New(cmd.ErrOrStderr(), cfg.Env, cfg.SlogLevel())

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{MaxConns: 2, MinConns: 1})
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	return &runtimeEnv{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		purge: &maintenance.RefreshTokenPurge{
			Tokens: postgres.NewStore(pool).Tokens(),
			Grace:  graceFor(cmd, opts, cfg),
		},
	}, nil
}

// graceFor prefers an explicit --grace over the configured default.
func graceFor(cmd *cobra.Command, opts *rootOptions, cfg *config.Config) time.Duration {
	if f := cmd.Flag("grace"); f != nil && f.Changed {
		return opts.grace
	}
	return cfg.RefreshPurgeGrace()
}
