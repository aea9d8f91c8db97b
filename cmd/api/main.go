package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/lib/pq" // postgres driver
	"github.com/redis/go-redis/v9"

	"github.com/nyashahama/retriever-digest/internal/ai"
	"github.com/nyashahama/retriever-digest/internal/api"
	"github.com/nyashahama/retriever-digest/internal/config"
	"github.com/nyashahama/retriever-digest/internal/content"
	"github.com/nyashahama/retriever-digest/internal/db"
	"github.com/nyashahama/retriever-digest/internal/digest"
	"github.com/nyashahama/retriever-digest/internal/email"
	"github.com/nyashahama/retriever-digest/internal/lock"
	"github.com/nyashahama/retriever-digest/internal/pace"
	"github.com/nyashahama/retriever-digest/internal/render"
	"github.com/nyashahama/retriever-digest/internal/store"
	"github.com/nyashahama/retriever-digest/internal/testimonials"
	"github.com/nyashahama/retriever-digest/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port, "timezone", cfg.DigestTimezone)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	pool, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	if err := db.Migrate(pool, logger); err != nil {
		return err
	}
	queries := db.New(pool)
	logger.Info("database connected")

	// ── Store (atomic multi-step writes) ──────────────────────────────────────
	st := store.New(pool, queries, store.WithShoutoutLimit(cfg.ShoutoutLimit))

	// ── Redis (optional) ──────────────────────────────────────────────────────
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
		logger.Info("redis configured, using redis run lock")
	} else {
		logger.Info("redis not configured, using postgres advisory run lock")
	}

	// ── AI ────────────────────────────────────────────────────────────────────
	gen, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("ai: %w", err)
	}

	// ── Email ─────────────────────────────────────────────────────────────────
	mailer, err := newMailer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}
	logger.Info("email configured", "provider", cfg.EmailProvider)

	// ── Digest pipeline ───────────────────────────────────────────────────────
	lib, err := content.LoadLibrary()
	if err != nil {
		return fmt.Errorf("content library: %w", err)
	}
	selector := content.NewSelector(st, st, gen, lib, content.Config{
		TestimonialLimit:  cfg.TestimonialLimit,
		FreshnessWindow:   cfg.FreshnessWindow,
		InspirationWindow: cfg.InspirationWindow,
	}, logger)

	var summary digest.SummaryGenerator
	if gen != nil {
		summary = gen
	}
	assembler := digest.NewAssembler(
		st,
		testimonials.NewHTTPSource(cfg.TestimonialsURL, cfg.TestimonialsAPIKey, logger),
		selector,
		summary,
		digest.Config{
			CandidatePool: cfg.TestimonialCandidates,
			RecentWindow:  cfg.RecentDigestWindow,
			Pace:          pace.Config{Tolerance: cfg.PaceTolerance},
		},
		logger,
	)

	renderer, err := render.New()
	if err != nil {
		return err
	}

	job := worker.NewJob(st, assembler, renderer, mailer,
		lock.NewFactory(rdb, pool, cfg.LockTTL), logger,
		worker.WithLocation(cfg.Location()))

	// ── Scheduler (optional) ──────────────────────────────────────────────────
	if cfg.SchedulerEnabled {
		redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		stopServer, err := worker.StartServer(redisOpt, job, logger)
		if err != nil {
			return err
		}
		defer stopServer()

		stopScheduler, err := worker.StartScheduler(redisOpt, worker.SchedulerConfig{
			DailySchedule:  cfg.DailySchedule,
			WeeklySchedule: cfg.WeeklySchedule,
			Location:       cfg.Location(),
			JobTimeout:     cfg.JobTimeout,
		}, logger)
		if err != nil {
			return err
		}
		defer stopScheduler()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		queries,
		st,
		job,
		api.Config{
			Env:                cfg.Env,
			AdminToken:         cfg.AdminToken,
			CronSecret:         cfg.CronSecret,
			ExportSecret:       cfg.ExportAPISecret,
			InboundEmailSecret: cfg.InboundEmailSecret,
			Location:           cfg.Location(),
		},
		logger,
	)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Digest sends run inside the request.
		WriteTimeout: cfg.JobTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newGenerator chains every configured provider: Anthropic, then DeepSeek,
// then Bedrock. It returns nil when none is configured; the digest then
// uses only the local library.
func newGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ai.Generator, error) {
	var chain []ai.Generator
	if cfg.AnthropicAPIKey != "" {
		chain = append(chain, ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel))
	}
	if cfg.DeepSeekAPIKey != "" {
		chain = append(chain, ai.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekModel))
	}
	if cfg.BedrockModelID != "" {
		b, err := ai.NewBedrockClient(ctx, cfg.AWSRegion, cfg.BedrockModelID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, b)
	}

	if len(chain) == 0 {
		logger.Warn("ai: no provider configured, using local content only")
		return nil, nil
	}
	// Fold from the back so the first configured provider is tried first.
	gen := chain[len(chain)-1]
	for i := len(chain) - 2; i >= 0; i-- {
		gen = ai.NewFallbackGenerator(chain[i], gen, logger)
	}
	logger.Info("ai: providers configured", "count", len(chain))
	return gen, nil
}

func newMailer(ctx context.Context, cfg *config.Config) (email.Sender, error) {
	if cfg.EmailProvider == "ses" {
		return email.NewSESClient(ctx, cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey,
			cfg.EmailFromAddr, cfg.EmailFromName)
	}
	return email.NewResendClient(cfg.ResendAPIKey, cfg.EmailFromAddr, cfg.EmailFromName, ""), nil
}

// openDB opens the connection pool and verifies it is reachable.
func openDB(dsn string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
