package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/retriever-digest/internal/dates"
	"github.com/nyashahama/retriever-digest/internal/db"
	"github.com/nyashahama/retriever-digest/internal/model"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// CompleteDigestParams is what the digest job hands over once a batch send
// has finished.
type CompleteDigestParams struct {
	// ShoutoutIDs are the shoutouts emitted in the payload. Only these are
	// purged; shoutouts submitted during the send survive.
	ShoutoutIDs []uuid.UUID

	// Testimonials shown in the digest get their display count bumped.
	Testimonials []model.Testimonial

	// Purge is false when nobody received the digest; nothing is consumed.
	Purge bool

	Run model.DigestRun
}

// ─── METHODS ─────────────────────────────────────────────────────────────────

// CompleteDigestSend records the run and, when Purge is set, consumes the
// emitted shoutouts and testimonials, all in one transaction.
func (s *Store) CompleteDigestSend(ctx context.Context, p CompleteDigestParams) error {
	if p.Run.ID == uuid.Nil {
		p.Run.ID = uuid.New()
	}
	return s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		if p.Purge {
			if _, err := q.DeleteShoutouts(ctx, p.ShoutoutIDs); err != nil {
				return fmt.Errorf("CompleteDigestSend: delete shoutouts: %w", err)
			}
			shownAt := p.Run.CreatedAt
			if shownAt.IsZero() {
				shownAt = time.Now().UTC()
			}
			for _, t := range p.Testimonials {
				if err := q.IncrementDisplay(ctx, t, shownAt); err != nil {
					return fmt.Errorf("CompleteDigestSend: increment display %s: %w", t.ID, err)
				}
			}
		}
		if err := q.InsertDigestRun(ctx, p.Run); err != nil {
			return fmt.Errorf("CompleteDigestSend: insert run: %w", err)
		}
		return nil
	})
}

// SaveExport upserts rec by its calendar day.
func (s *Store) SaveExport(ctx context.Context, rec model.ExportRecord) error {
	if rec.ExportDate.IsZero() {
		return model.ErrMissingExportDate
	}
	if err := s.q.UpsertExport(ctx, rec); err != nil {
		return fmt.Errorf("store: upsert export %s: %w", rec.Date(), err)
	}
	return nil
}

// SetInspiration caches insp on the export record for day. A missing record
// is not an error; there is simply nothing to cache onto.
func (s *Store) SetInspiration(ctx context.Context, day time.Time, insp model.Inspiration) error {
	raw, err := json.Marshal(insp)
	if err != nil {
		return fmt.Errorf("store: marshal inspiration: %w", err)
	}
	if _, err := s.q.SetExportInspiration(ctx, day.Format(dates.DayLayout), raw); err != nil {
		return fmt.Errorf("store: set inspiration: %w", err)
	}
	return nil
}

// DisplayRecords returns the display history for ids.
func (s *Store) DisplayRecords(ctx context.Context, ids []string) ([]model.DisplayRecord, error) {
	return s.q.ListDisplayRecords(ctx, ids)
}

// Goal returns the goal for period, or nil when none is set.
func (s *Store) Goal(ctx context.Context, period model.PeriodType) (*model.Goal, error) {
	g, err := s.q.GetGoal(ctx, period)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get goal: %w", err)
	}
	return &g, nil
}

// RecentDigests returns digests sent since since, newest first. Mock runs are
// left out; their headlines describe sample data.
func (s *Store) RecentDigests(ctx context.Context, since time.Time) ([]model.RecentDigest, error) {
	runs, err := s.q.ListRunsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	out := []model.RecentDigest{}
	for _, r := range runs {
		if r.IsMock {
			continue
		}
		out = append(out, model.RecentDigest{
			Date:         r.DigestDate.Format(dates.DayLayout),
			Headline:     r.Headline,
			AccountNames: r.AccountNames,
		})
	}
	return out, nil
}

// LatestExport returns the most recent export record, or nil when none has
// been ingested.
func (s *Store) LatestExport(ctx context.Context) (*model.ExportRecord, error) {
	rec, err := s.q.GetLatestExport(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest export: %w", err)
	}
	return &rec, nil
}

// ExportsInRange returns the records whose day falls within [start, end],
// oldest first. Only the calendar day of each bound is used.
func (s *Store) ExportsInRange(ctx context.Context, start, end time.Time) ([]model.ExportRecord, error) {
	recs, err := s.q.ListExportsInRange(ctx, start.Format(dates.DayLayout), end.Format(dates.DayLayout))
	if err != nil {
		return nil, fmt.Errorf("store: exports %s..%s: %w", start.Format(dates.DayLayout), end.Format(dates.DayLayout), err)
	}
	return recs, nil
}

// PendingShoutouts returns every queued shoutout, oldest first.
func (s *Store) PendingShoutouts(ctx context.Context) ([]model.Shoutout, error) {
	return s.q.ListPendingShoutouts(ctx)
}

// BirthdayRecipients returns active recipients celebrating on one of days
// (MM-DD) who have not opted out.
func (s *Store) BirthdayRecipients(ctx context.Context, days []string) ([]model.Recipient, error) {
	return s.q.ListBirthdayRecipients(ctx, days)
}

// DigestRecipients returns everyone who should receive the digest.
func (s *Store) DigestRecipients(ctx context.Context) ([]model.Recipient, error) {
	return s.q.ListDigestRecipients(ctx)
}
