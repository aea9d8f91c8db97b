package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nyashahama/retriever-digest/internal/model"
)

const countPendingShoutouts = `-- name: CountPendingShoutouts :one
SELECT count(*) FROM shoutouts WHERE recipient_id = $1
`

func (q *Queries) CountPendingShoutouts(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, countPendingShoutouts, recipientID).Scan(&n)
	return n, err
}

const createShoutout = `-- name: CreateShoutout :one
INSERT INTO shoutouts (id, recipient_id, message)
VALUES ($1, $2, $3)
RETURNING id, recipient_id, message, created_at
`

// CreateShoutout inserts s. RecipientName is carried over from the argument,
// not read back.
func (q *Queries) CreateShoutout(ctx context.Context, s model.Shoutout) (model.Shoutout, error) {
	out := model.Shoutout{RecipientName: s.RecipientName}
	err := q.db.QueryRowContext(ctx, createShoutout, s.ID, s.RecipientID, s.Message).Scan(
		&out.ID,
		&out.RecipientID,
		&out.Message,
		&out.CreatedAt,
	)
	return out, err
}

const listPendingShoutouts = `-- name: ListPendingShoutouts :many
SELECT s.id, s.recipient_id, r.name, s.message, s.created_at
FROM shoutouts s
JOIN recipients r ON r.id = s.recipient_id
ORDER BY s.created_at ASC, s.id
`

// ListPendingShoutouts returns every pending shoutout, oldest first.
func (q *Queries) ListPendingShoutouts(ctx context.Context) ([]model.Shoutout, error) {
	rows, err := q.db.QueryContext(ctx, listPendingShoutouts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.Shoutout{}
	for rows.Next() {
		var s model.Shoutout
		if err := rows.Scan(&s.ID, &s.RecipientID, &s.RecipientName, &s.Message, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteShoutouts = `-- name: DeleteShoutouts :execrows
DELETE FROM shoutouts WHERE id = ANY($1::uuid[])
`

// DeleteShoutouts removes exactly the given ids. Shoutouts created after the
// ids were read are left alone.
func (q *Queries) DeleteShoutouts(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	res, err := q.db.ExecContext(ctx, deleteShoutouts, pq.Array(strs))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
