package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/retriever-digest/internal/model"
)

// Querier is every statement the application runs. Single-row reads return
// sql.ErrNoRows when nothing matches.
type Querier interface {
	// export_records
	UpsertExport(ctx context.Context, rec model.ExportRecord) error
	GetExportByDate(ctx context.Context, day string) (model.ExportRecord, error)
	GetLatestExport(ctx context.Context) (model.ExportRecord, error)
	ListExportsInRange(ctx context.Context, start, end string) ([]model.ExportRecord, error)
	SetExportInspiration(ctx context.Context, day string, inspiration json.RawMessage) (int64, error)

	// goals
	GetGoal(ctx context.Context, period model.PeriodType) (model.Goal, error)
	ListGoals(ctx context.Context) ([]model.Goal, error)
	UpsertGoal(ctx context.Context, g model.Goal) (model.Goal, error)

	// recipients
	ListRecipients(ctx context.Context) ([]model.Recipient, error)
	ListDigestRecipients(ctx context.Context) ([]model.Recipient, error)
	ListBirthdayRecipients(ctx context.Context, days []string) ([]model.Recipient, error)
	GetRecipient(ctx context.Context, id uuid.UUID) (model.Recipient, error)
	GetRecipientByEmail(ctx context.Context, email string) (model.Recipient, error)
	CreateRecipient(ctx context.Context, r model.Recipient) (model.Recipient, error)
	UpdateRecipient(ctx context.Context, r model.Recipient) (model.Recipient, error)
	SetRecipientActive(ctx context.Context, id uuid.UUID, active bool) (model.Recipient, error)
	DeleteRecipient(ctx context.Context, id uuid.UUID) (int64, error)

	// shoutouts
	CountPendingShoutouts(ctx context.Context, recipientID uuid.UUID) (int, error)
	CreateShoutout(ctx context.Context, s model.Shoutout) (model.Shoutout, error)
	ListPendingShoutouts(ctx context.Context) ([]model.Shoutout, error)
	DeleteShoutouts(ctx context.Context, ids []uuid.UUID) (int64, error)

	// testimonial_displays
	ListDisplayRecords(ctx context.Context, ids []string) ([]model.DisplayRecord, error)
	IncrementDisplay(ctx context.Context, t model.Testimonial, shownAt time.Time) error

	// digest_runs
	InsertDigestRun(ctx context.Context, run model.DigestRun) error
	ListRunsSince(ctx context.Context, since time.Time) ([]model.DigestRun, error)
}

var _ Querier = (*Queries)(nil)
