package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/nyashahama/retriever-digest/internal/model"
)

const listDisplayRecords = `-- name: ListDisplayRecords :many
SELECT testimonial_id, testimonial, times_displayed, last_shown_at
FROM testimonial_displays
WHERE testimonial_id = ANY($1::text[])
`

func (q *Queries) ListDisplayRecords(ctx context.Context, ids []string) ([]model.DisplayRecord, error) {
	items := []model.DisplayRecord{}
	if len(ids) == 0 {
		return items, nil
	}
	rows, err := q.db.QueryContext(ctx, listDisplayRecords, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec       model.DisplayRecord
			raw       []byte
			lastShown sql.NullTime
		)
		if err := rows.Scan(&rec.TestimonialID, &raw, &rec.TimesDisplayed, &lastShown); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &rec.Testimonial); err != nil {
			return nil, fmt.Errorf("db: decode testimonial %s: %w", rec.TestimonialID, err)
		}
		if lastShown.Valid {
			t := lastShown.Time
			rec.LastShownAt = &t
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const incrementDisplay = `-- name: IncrementDisplay :exec
INSERT INTO testimonial_displays (testimonial_id, testimonial, times_displayed, last_shown_at)
VALUES ($1, $2, 1, $3)
ON CONFLICT (testimonial_id) DO UPDATE SET
    testimonial     = EXCLUDED.testimonial,
    times_displayed = testimonial_displays.times_displayed + 1,
    last_shown_at   = EXCLUDED.last_shown_at
`

// IncrementDisplay bumps the display count of t by one in a single statement,
// creating the row on first display.
func (q *Queries) IncrementDisplay(ctx context.Context, t model.Testimonial, shownAt time.Time) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("db: marshal testimonial: %w", err)
	}
	_, err = q.db.ExecContext(ctx, incrementDisplay, t.ID, raw, shownAt)
	return err
}
