package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/retriever-digest/internal/dates"
	"github.com/nyashahama/retriever-digest/internal/digest"
	"github.com/nyashahama/retriever-digest/internal/email"
	"github.com/nyashahama/retriever-digest/internal/lock"
	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/store"
)

// Builder assembles a digest. *digest.Assembler satisfies it.
type Builder interface {
	Build(ctx context.Context, kind model.DigestKind, ref time.Time) (digest.Result, error)
}

// Renderer turns a payload into an email. *render.Renderer satisfies it.
type Renderer interface {
	Render(p digest.Payload) (subject, html string, err error)
}

// RunStore is the persistence the job needs around a send. *store.Store
// satisfies it.
type RunStore interface {
	DigestRecipients(ctx context.Context) ([]model.Recipient, error)
	CompleteDigestSend(ctx context.Context, p store.CompleteDigestParams) error
}

// Preview is a built and rendered digest that was not sent.
type Preview struct {
	Subject    string         `json:"subject"`
	HTML       string         `json:"html"`
	IsMockData bool           `json:"isMockData"`
	Payload    digest.Payload `json:"payload"`
}

// Job runs one digest end to end: lock, build, render, send, commit.
type Job struct {
	store    RunStore
	builder  Builder
	renderer Renderer
	mailer   email.Sender
	locks    lock.Factory
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// JobOption configures a Job.
type JobOption func(*Job)

// WithLocation sets the zone the digest's reference time is taken in.
func WithLocation(loc *time.Location) JobOption {
	return func(j *Job) {
		if loc != nil {
			j.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) JobOption {
	return func(j *Job) { j.now = now }
}

// NewJob constructs a Job with all required dependencies.
func NewJob(
	st RunStore,
	builder Builder,
	renderer Renderer,
	mailer email.Sender,
	locks lock.Factory,
	logger *slog.Logger,
	opts ...JobOption,
) *Job {
	j := &Job{
		store:    st,
		builder:  builder,
		renderer: renderer,
		mailer:   mailer,
		locks:    locks,
		loc:      time.UTC,
		now:      time.Now,
		logger:   logger,
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Run builds and sends the digest of kind to every subscribed recipient.
//
// Pending shoutouts and testimonial display counts are only consumed when at
// least one recipient received the digest. A run of the same kind already in
// flight makes Run return digest.ErrRunInProgress without doing anything.
func (j *Job) Run(ctx context.Context, kind model.DigestKind) (digest.BatchResult, error) {
	if !kind.Valid() {
		return digest.BatchResult{}, fmt.Errorf("%w: %q", digest.ErrUnknownKind, kind)
	}
	log := j.logger.With("kind", kind)

	l := j.locks("digest:" + string(kind))
	ok, err := l.Acquire(ctx)
	if err != nil {
		return digest.BatchResult{}, fmt.Errorf("job: acquire lock: %w", err)
	}
	if !ok {
		log.Info("job: run already in progress, skipping")
		return digest.BatchResult{}, digest.ErrRunInProgress
	}
	defer func() {
		// The run's ctx may already be cancelled; the lock still has to go.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.Release(rctx); err != nil {
			log.Warn("job: release lock failed", "error", err)
		}
	}()

	recipients, err := j.store.DigestRecipients(ctx)
	if err != nil {
		return digest.BatchResult{}, fmt.Errorf("job: load recipients: %w", err)
	}

	res, err := j.builder.Build(ctx, kind, j.now().In(j.loc))
	if err != nil {
		return digest.BatchResult{}, fmt.Errorf("job: build: %w", err)
	}

	subject, html, err := j.renderer.Render(res.Payload)
	if err != nil {
		return digest.BatchResult{}, fmt.Errorf("job: render: %w", err)
	}

	batch := digest.SendBatch(ctx, j.mailer, recipients, subject, html, log)

	run := model.DigestRun{
		ID:           uuid.New(),
		Kind:         kind,
		DigestDate:   j.digestDate(res.Payload.Date),
		Headline:     res.Payload.Summary.Headline,
		AccountNames: res.Payload.AccountNames(),
		Sent:         batch.Sent,
		Failed:       batch.Failed,
		IsMock:       res.Payload.IsMockData,
		CreatedAt:    j.now(),
	}

	// Sending already happened; a failed commit must not look like a failed
	// send, or a retry would mail everyone twice.
	if err := j.store.CompleteDigestSend(ctx, store.CompleteDigestParams{
		ShoutoutIDs:  res.ShoutoutIDs,
		Testimonials: res.Testimonials,
		Purge:        batch.Delivered(),
		Run:          run,
	}); err != nil {
		log.Error("job: commit after send failed", "error", err, "sent", batch.Sent)
	}

	log.Info("job: digest complete",
		"date", res.Payload.Date,
		"is_mock", res.Payload.IsMockData,
		"recipients", len(recipients),
		"sent", batch.Sent,
		"failed", batch.Failed,
	)
	return batch, nil
}

// Preview builds and renders the digest of kind without sending it or
// consuming any pending state.
func (j *Job) Preview(ctx context.Context, kind model.DigestKind) (Preview, error) {
	res, err := j.builder.Build(ctx, kind, j.now().In(j.loc))
	if err != nil {
		return Preview{}, err
	}
	subject, html, err := j.renderer.Render(res.Payload)
	if err != nil {
		return Preview{}, fmt.Errorf("job: render: %w", err)
	}
	return Preview{
		Subject:    subject,
		HTML:       html,
		IsMockData: res.Payload.IsMockData,
		Payload:    res.Payload,
	}, nil
}

func (j *Job) digestDate(day string) time.Time {
	t, err := dates.ParseDay(day, time.UTC)
	if err != nil {
		return dates.StartOfDay(j.now().In(j.loc))
	}
	return t
}
