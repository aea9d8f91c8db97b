package db

import (
	"context"
	"time"

	"github.com/lib/pq"

	"github.com/nyashahama/retriever-digest/internal/model"
)

const insertDigestRun = `-- name: InsertDigestRun :exec
INSERT INTO digest_runs (id, kind, digest_date, headline, account_names, sent, failed, is_mock)
VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8)
`

func (q *Queries) InsertDigestRun(ctx context.Context, run model.DigestRun) error {
	names := run.AccountNames
	if names == nil {
		names = []string{}
	}
	_, err := q.db.ExecContext(ctx, insertDigestRun,
		run.ID,
		string(run.Kind),
		run.DigestDate.Format("2006-01-02"),
		run.Headline,
		pq.Array(names),
		run.Sent,
		run.Failed,
		run.IsMock,
	)
	return err
}

const listRunsSince = `-- name: ListRunsSince :many
SELECT id, kind, digest_date, headline, account_names, sent, failed, is_mock, created_at
FROM digest_runs
WHERE created_at >= $1
ORDER BY created_at DESC
`

// ListRunsSince returns runs created at or after since, newest first.
func (q *Queries) ListRunsSince(ctx context.Context, since time.Time) ([]model.DigestRun, error) {
	rows, err := q.db.QueryContext(ctx, listRunsSince, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.DigestRun{}
	for rows.Next() {
		var (
			run  model.DigestRun
			kind string
			day  time.Time
		)
		if err := rows.Scan(
			&run.ID,
			&kind,
			&day,
			&run.Headline,
			pq.Array(&run.AccountNames),
			&run.Sent,
			&run.Failed,
			&run.IsMock,
			&run.CreatedAt,
		); err != nil {
			return nil, err
		}
		run.Kind = model.DigestKind(kind)
		run.DigestDate = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		if run.AccountNames == nil {
			run.AccountNames = []string{}
		}
		items = append(items, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
