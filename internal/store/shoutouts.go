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

// ─── ERRORS ──────────────────────────────────────────────────────────────────

var (
	// ErrShoutoutLimit is matched by every *LimitError.
	ErrShoutoutLimit = errors.New("store: pending shoutout limit reached")

	// ErrRecipientNotFound is returned when no recipient matches the id or
	// sender address.
	ErrRecipientNotFound = errors.New("store: recipient not found")

	// ErrRecipientInactive is returned when a deactivated recipient tries to
	// submit a shoutout.
	ErrRecipientInactive = errors.New("store: recipient is inactive")
)

// LimitError carries the configured limit so the message shown to the
// submitter names it.
type LimitError struct {
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("You already have %d shoutouts waiting for the next digest", e.Limit)
}

// Is lets errors.Is(err, ErrShoutoutLimit) match.
func (e *LimitError) Is(target error) bool { return target == ErrShoutoutLimit }

// ─── METHODS ─────────────────────────────────────────────────────────────────

// SubmitShoutout stores message for the recipient with id. The recipient must
// exist and be active, and must have fewer than the limit pending.
func (s *Store) SubmitShoutout(ctx context.Context, recipientID uuid.UUID, message string) (model.Shoutout, error) {
	return s.submit(ctx, message, func(ctx context.Context, q db.Querier) (model.Recipient, error) {
		return q.GetRecipient(ctx, recipientID)
	})
}

// SubmitShoutoutByEmail is SubmitShoutout keyed by the sender's address,
// matched case-insensitively. Used by the inbound email webhook.
func (s *Store) SubmitShoutoutByEmail(ctx context.Context, email, message string) (model.Shoutout, error) {
	return s.submit(ctx, message, func(ctx context.Context, q db.Querier) (model.Recipient, error) {
		return q.GetRecipientByEmail(ctx, email)
	})
}

type recipientLookup func(ctx context.Context, q db.Querier) (model.Recipient, error)

func (s *Store) submit(ctx context.Context, message string, lookup recipientLookup) (model.Shoutout, error) {
	var created model.Shoutout

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		r, err := lookup(ctx, q)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRecipientNotFound
		}
		if err != nil {
			return fmt.Errorf("SubmitShoutout: get recipient: %w", err)
		}
		if !r.Active {
			return ErrRecipientInactive
		}

		pending, err := q.CountPendingShoutouts(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("SubmitShoutout: count pending: %w", err)
		}
		if pending >= s.shoutoutLimit {
			return &LimitError{Limit: s.shoutoutLimit}
		}

		created, err = q.CreateShoutout(ctx, model.Shoutout{
			ID:            uuid.New(),
			RecipientID:   r.ID,
			RecipientName: r.Name,
			Message:       message,
		})
		if err != nil {
			return fmt.Errorf("SubmitShoutout: create: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Shoutout{}, err
	}
	return created, nil
}
