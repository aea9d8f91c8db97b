// Package worker runs digests. Job is the build-render-send pipeline shared
// by the cron endpoint, the admin send button and the asynq periodic tasks.
// The api package only sees the DigestRunner interface; it never imports the
// asynq wiring in this file.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nyashahama/retriever-digest/internal/digest"
	"github.com/nyashahama/retriever-digest/internal/model"
)

// Task types for the periodic digests.
const (
	TaskDailyDigest  = "digest:daily"
	TaskWeeklyDigest = "digest:weekly"
)

// DigestRunner is the narrow interface callers use to trigger a run. *Job
// satisfies it; tests use any struct with a Run method.
type DigestRunner interface {
	Run(ctx context.Context, kind model.DigestKind) (digest.BatchResult, error)
}

// SchedulerConfig holds the periodic task settings.
type SchedulerConfig struct {
	// DailySchedule and WeeklySchedule are cron specs evaluated in Location.
	DailySchedule  string
	WeeklySchedule string
	Location       *time.Location

	// JobTimeout bounds one run. Default: 10 minutes.
	JobTimeout time.Duration
}

// DefaultSchedulerConfig returns weekday mornings for the daily digest and
// Friday afternoon for the weekly one.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		DailySchedule:  "0 8 * * 1-5",
		WeeklySchedule: "0 16 * * 5",
		Location:       time.UTC,
		JobTimeout:     10 * time.Minute,
	}
}

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger.
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...any) { a.logger.Debug(fmt.Sprint(args...)) }
func (a *asynqLoggerAdapter) Info(args ...any)  { a.logger.Info(fmt.Sprint(args...)) }
func (a *asynqLoggerAdapter) Warn(args ...any)  { a.logger.Warn(fmt.Sprint(args...)) }
func (a *asynqLoggerAdapter) Error(args ...any) { a.logger.Error(fmt.Sprint(args...)) }

func (a *asynqLoggerAdapter) Fatal(args ...any) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// NewDigestTask returns the task for kind. Digests are never retried by the
// queue: a partial batch would mail the same people twice.
func NewDigestTask(kind model.DigestKind, timeout time.Duration) *asynq.Task {
	return asynq.NewTask(
		"digest:"+string(kind),
		nil,
		asynq.MaxRetry(0),
		asynq.Timeout(timeout),
		asynq.Retention(24*time.Hour),
		asynq.Unique(time.Hour),
	)
}

// StartScheduler registers the periodic digest tasks and starts the asynq
// scheduler. The returned function stops it.
func StartScheduler(redisOpt asynq.RedisConnOpt, cfg SchedulerConfig, logger *slog.Logger) (stop func(), err error) {
	cfg = withDefaults(cfg)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: cfg.Location,
		LogLevel: asynq.InfoLevel,
		Logger:   &asynqLoggerAdapter{logger: logger},
	})

	entries := []struct {
		spec string
		kind model.DigestKind
	}{
		{cfg.DailySchedule, model.DigestDaily},
		{cfg.WeeklySchedule, model.DigestWeekly},
	}
	for _, e := range entries {
		if e.spec == "" {
			continue
		}
		id, err := scheduler.Register(e.spec, NewDigestTask(e.kind, cfg.JobTimeout))
		if err != nil {
			return nil, fmt.Errorf("worker: register %s schedule: %w", e.kind, err)
		}
		logger.Info("worker: schedule registered", "kind", e.kind, "spec", e.spec, "entry_id", id)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("worker: start scheduler: %w", err)
	}
	logger.Info("worker: scheduler started", "timezone", cfg.Location.String())
	return scheduler.Shutdown, nil
}

// StartServer starts the asynq task server that executes scheduled digests
// with runner. The returned function stops it.
func StartServer(redisOpt asynq.RedisConnOpt, runner DigestRunner, logger *slog.Logger) (stop func(), err error) {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		// One digest at a time; the run lock rejects overlaps anyway.
		Concurrency:     1,
		ShutdownTimeout: 30 * time.Second,
		ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
		Logger:          &asynqLoggerAdapter{logger: logger},
	})
	if err := srv.Start(NewServeMux(runner, logger)); err != nil {
		return nil, fmt.Errorf("worker: start server: %w", err)
	}
	return srv.Shutdown, nil
}

// NewServeMux routes the digest task types to runner.
func NewServeMux(runner DigestRunner, logger *slog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskDailyDigest, handleDigest(runner, model.DigestDaily, logger))
	mux.HandleFunc(TaskWeeklyDigest, handleDigest(runner, model.DigestWeekly, logger))
	return mux
}

func handleDigest(runner DigestRunner, kind model.DigestKind, logger *slog.Logger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, _ *asynq.Task) error {
		res, err := runner.Run(ctx, kind)
		switch {
		case errors.Is(err, digest.ErrRunInProgress):
			logger.Info("worker: digest already running, task dropped", "kind", kind)
			return nil
		case err != nil:
			return fmt.Errorf("worker: %s digest: %w: %w", kind, err, asynq.SkipRetry)
		}
		logger.Info("worker: scheduled digest sent", "kind", kind, "sent", res.Sent, "failed", res.Failed)
		return nil
	}
}

func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		logger.Error("worker: task failed",
			"task_type", task.Type(),
			"error", err,
			"retry_count", retried,
		)
	}
}

func withDefaults(cfg SchedulerConfig) SchedulerConfig {
	def := DefaultSchedulerConfig()
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	return cfg
}
