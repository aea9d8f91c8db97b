package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nyashahama/retriever-digest/internal/db"
	"github.com/nyashahama/retriever-digest/internal/model"
)

// ErrDuplicateEmail is returned when another recipient already uses the
// address, compared case-insensitively.
var ErrDuplicateEmail = errors.New("store: a recipient with this email already exists")

// CreateRecipient inserts r under a fresh id.
func (s *Store) CreateRecipient(ctx context.Context, r model.Recipient) (model.Recipient, error) {
	r.ID = uuid.New()
	created, err := s.q.CreateRecipient(ctx, r)
	if isUniqueViolation(err) {
		return model.Recipient{}, ErrDuplicateEmail
	}
	if err != nil {
		return model.Recipient{}, fmt.Errorf("store: create recipient: %w", err)
	}
	return created, nil
}

// UpdateRecipient replaces every editable field of the recipient with id.
func (s *Store) UpdateRecipient(ctx context.Context, id uuid.UUID, r model.Recipient) (model.Recipient, error) {
	r.ID = id
	updated, err := s.q.UpdateRecipient(ctx, r)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model.Recipient{}, ErrRecipientNotFound
	case isUniqueViolation(err):
		return model.Recipient{}, ErrDuplicateEmail
	case err != nil:
		return model.Recipient{}, fmt.Errorf("store: update recipient: %w", err)
	}
	return updated, nil
}

// ToggleRecipient flips the active flag and returns the updated row.
func (s *Store) ToggleRecipient(ctx context.Context, id uuid.UUID) (model.Recipient, error) {
	var out model.Recipient
	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		r, err := q.GetRecipient(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRecipientNotFound
		}
		if err != nil {
			return fmt.Errorf("ToggleRecipient: get: %w", err)
		}
		out, err = q.SetRecipientActive(ctx, id, !r.Active)
		if err != nil {
			return fmt.Errorf("ToggleRecipient: set active: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Recipient{}, err
	}
	return out, nil
}

// DeleteRecipient removes the recipient and, by cascade, their pending
// shoutouts.
func (s *Store) DeleteRecipient(ctx context.Context, id uuid.UUID) error {
	n, err := s.q.DeleteRecipient(ctx, id)
	if err != nil {
		return fmt.Errorf("store: delete recipient: %w", err)
	}
	if n == 0 {
		return ErrRecipientNotFound
	}
	return nil
}
