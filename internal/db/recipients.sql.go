package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nyashahama/retriever-digest/internal/model"
)

const recipientColumns = `id, name, email, active, birthday, opt_out_digest, opt_out_birthday, created_at`

const listRecipients = `-- name: ListRecipients :many
SELECT ` + recipientColumns + `
FROM recipients
ORDER BY lower(name), created_at
`

func (q *Queries) ListRecipients(ctx context.Context) ([]model.Recipient, error) {
	return q.queryRecipients(ctx, listRecipients)
}

const listDigestRecipients = `-- name: ListDigestRecipients :many
SELECT ` + recipientColumns + `
FROM recipients
WHERE active AND NOT opt_out_digest
ORDER BY lower(name), created_at
`

// ListDigestRecipients returns active recipients that have not opted out.
func (q *Queries) ListDigestRecipients(ctx context.Context) ([]model.Recipient, error) {
	return q.queryRecipients(ctx, listDigestRecipients)
}

const listBirthdayRecipients = `-- name: ListBirthdayRecipients :many
SELECT ` + recipientColumns + `
FROM recipients
WHERE active AND NOT opt_out_birthday
  AND birthday = ANY($1::text[])
ORDER BY birthday, lower(name)
`

// ListBirthdayRecipients returns active recipients whose MM-DD birthday is
// one of days.
func (q *Queries) ListBirthdayRecipients(ctx context.Context, days []string) ([]model.Recipient, error) {
	return q.queryRecipients(ctx, listBirthdayRecipients, pq.Array(days))
}

const getRecipient = `-- name: GetRecipient :one
SELECT ` + recipientColumns + `
FROM recipients
WHERE id = $1
`

func (q *Queries) GetRecipient(ctx context.Context, id uuid.UUID) (model.Recipient, error) {
	return scanRecipient(q.db.QueryRowContext(ctx, getRecipient, id))
}

const getRecipientByEmail = `-- name: GetRecipientByEmail :one
SELECT ` + recipientColumns + `
FROM recipients
WHERE lower(email) = lower($1)
`

func (q *Queries) GetRecipientByEmail(ctx context.Context, email string) (model.Recipient, error) {
	return scanRecipient(q.db.QueryRowContext(ctx, getRecipientByEmail, email))
}

const createRecipient = `-- name: CreateRecipient :one
INSERT INTO recipients (id, name, email, active, birthday, opt_out_digest, opt_out_birthday)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + recipientColumns

func (q *Queries) CreateRecipient(ctx context.Context, r model.Recipient) (model.Recipient, error) {
	return scanRecipient(q.db.QueryRowContext(ctx, createRecipient,
		r.ID,
		r.Name,
		r.Email,
		r.Active,
		nullString(r.Birthday),
		r.OptOutDigest,
		r.OptOutBirthday,
	))
}

const updateRecipient = `-- name: UpdateRecipient :one
UPDATE recipients SET
    name             = $2,
    email            = $3,
    active           = $4,
    birthday         = $5,
    opt_out_digest   = $6,
    opt_out_birthday = $7
WHERE id = $1
RETURNING ` + recipientColumns

func (q *Queries) UpdateRecipient(ctx context.Context, r model.Recipient) (model.Recipient, error) {
	return scanRecipient(q.db.QueryRowContext(ctx, updateRecipient,
		r.ID,
		r.Name,
		r.Email,
		r.Active,
		nullString(r.Birthday),
		r.OptOutDigest,
		r.OptOutBirthday,
	))
}

const setRecipientActive = `-- name: SetRecipientActive :one
UPDATE recipients SET active = $2
WHERE id = $1
RETURNING ` + recipientColumns

func (q *Queries) SetRecipientActive(ctx context.Context, id uuid.UUID, active bool) (model.Recipient, error) {
	return scanRecipient(q.db.QueryRowContext(ctx, setRecipientActive, id, active))
}

const deleteRecipient = `-- name: DeleteRecipient :execrows
DELETE FROM recipients WHERE id = $1
`

// DeleteRecipient removes the recipient; pending shoutouts cascade.
func (q *Queries) DeleteRecipient(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteRecipient, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) queryRecipients(ctx context.Context, query string, args ...any) ([]model.Recipient, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.Recipient{}
	for rows.Next() {
		r, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanRecipient(row scanner) (model.Recipient, error) {
	var (
		r        model.Recipient
		birthday sql.NullString
	)
	if err := row.Scan(
		&r.ID,
		&r.Name,
		&r.Email,
		&r.Active,
		&birthday,
		&r.OptOutDigest,
		&r.OptOutBirthday,
		&r.CreatedAt,
	); err != nil {
		return model.Recipient{}, err
	}
	if birthday.Valid {
		b := birthday.String
		r.Birthday = &b
	}
	return r, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
