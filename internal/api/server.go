// Package api implements the HTTP layer for the retriever digest. Handlers
// are methods on *Server. Each handler file is responsible for one resource
// group and only imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nyashahama/retriever-digest/internal/db"
	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/worker"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	AdminToken         string
	CronSecret         string
	ExportSecret       string
	InboundEmailSecret string

	// Location dates incoming exports. Defaults to UTC.
	Location *time.Location
}

// Store is the subset of *store.Store the handlers use for multi-step
// writes.
type Store interface {
	SaveExport(ctx context.Context, rec model.ExportRecord) error
	SubmitShoutout(ctx context.Context, recipientID uuid.UUID, message string) (model.Shoutout, error)
	SubmitShoutoutByEmail(ctx context.Context, email, message string) (model.Shoutout, error)
	CreateRecipient(ctx context.Context, r model.Recipient) (model.Recipient, error)
	UpdateRecipient(ctx context.Context, id uuid.UUID, r model.Recipient) (model.Recipient, error)
	ToggleRecipient(ctx context.Context, id uuid.UUID) (model.Recipient, error)
	DeleteRecipient(ctx context.Context, id uuid.UUID) error
}

// Digests runs and previews digests. *worker.Job satisfies it.
type Digests interface {
	worker.DigestRunner
	Preview(ctx context.Context, kind model.DigestKind) (worker.Preview, error)
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// q handles all single-query reads and writes.
	q db.Querier

	// store handles multi-step atomic writes.
	store Store

	digests Digests

	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	q db.Querier,
	st Store,
	digests Digests,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s := &Server{
		q:       q,
		store:   st,
		digests: digests,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		// Digest runs send a whole batch synchronously; they get a longer
		// budget than ordinary requests.
		r.Group(func(r chi.Router) {
			r.Use(s.requireSecret("X-Cron-Secret", s.cfg.CronSecret))
			r.Use(middleware.Timeout(10 * time.Minute))
			r.Post("/cron/digest/{kind}", s.handleRunDigest)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			// Export ingestion: shared secret with the export job.
			r.Route("/export", func(r chi.Router) {
				r.Use(s.requireSecret("X-Export-Secret", s.cfg.ExportSecret))
				r.Post("/", s.handleIngestExport)
				r.Get("/recent", s.handleRecentExports)
			})

			// Public shoutout form; the pending limit is the only throttle.
			r.Post("/shoutouts", s.handleSubmitShoutout)

			r.With(s.requireSecret("X-Webhook-Secret", s.cfg.InboundEmailSecret)).
				Post("/webhooks/inbound-email", s.handleInboundEmail)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))

				r.Get("/goals", s.handleListGoals)
				r.Put("/goals/{period}", s.handleUpsertGoal)

				r.Get("/recipients", s.handleListRecipients)
				r.Post("/recipients", s.handleCreateRecipient)
				r.Put("/recipients/{id}", s.handleUpdateRecipient)
				r.Post("/recipients/{id}/toggle", s.handleToggleRecipient)
				r.Delete("/recipients/{id}", s.handleDeleteRecipient)

				r.Get("/preview/{kind}", s.handlePreviewDigest)
			})

			r.With(middleware.Timeout(10*time.Minute)).Post("/send/{kind}", s.handleRunDigest)
		})
	})

	return r
}

// digestKind parses the {kind} URL parameter.
func digestKind(r *http.Request) (model.DigestKind, bool) {
	k := model.DigestKind(chi.URLParam(r, "kind"))
	return k, k.Valid()
}
