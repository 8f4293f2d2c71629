package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/metrics"
	"github.com/robfig/cron/v3"
)

// Job is one unit of periodic cleanup. Run reports how many rows or
// entries it removed.
type Job interface {
	Name() string
	Run(ctx context.Context) (int, error)
}

// Scheduler runs jobs on cron expressions. A panicking job is recovered
// and logged; it does not stop the others.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	logger = logger.With("component", "maintenance")
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger}))),
		logger: logger,
	}
}

// Add schedules job on spec (standard five-field or @descriptor syntax).
func (s *Scheduler) Add(ctx context.Context, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		_, _ = RunOnce(ctx, job, s.logger)
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", job.Name(), spec, err)
	}
	s.logger.Info("maintenance job scheduled", "job", job.Name(), "spec", spec)
	return nil
}

// Start runs the scheduler until ctx is done, then waits for running jobs
// to finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("maintenance scheduler started", "jobs", len(s.cron.Entries()))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("maintenance scheduler shut down")
}

// RunOnce executes job immediately and records its outcome.
func RunOnce(ctx context.Context, job Job, logger *slog.Logger) (int, error) {
	start := time.Now()
	removed, err := job.Run(ctx)
	metrics.MaintenanceRunDuration.WithLabelValues(job.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.ErrorContext(ctx, "maintenance job failed", "job", job.Name(), "error", err)
		return 0, err
	}
	metrics.MaintenanceRemovedTotal.WithLabelValues(job.Name()).Add(float64(removed))
	if removed > 0 {
		logger.InfoContext(ctx, "maintenance job removed entries", "job", job.Name(), "removed", removed)
	}
	return removed, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
