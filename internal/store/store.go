// Package store wraps db.Querier with transaction support and groups the
// multi-step write operations that must execute atomically, plus the few
// read adapters the digest engine consumes through narrow interfaces.
//
// Single-query reads (ListRecipients, GetExportByDate, etc.) should be called
// directly on db.Querier via Q(); there is no value in proxying them.
//
// Dependency rule: store imports db, dates and model only. It never imports api,
// worker, digest, ai, or email.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/nyashahama/retriever-digest/internal/db"
)

// DefaultShoutoutLimit is the number of pending shoutouts one recipient may
// have waiting for the next digest.
const DefaultShoutoutLimit = 3

// Store holds a *sql.DB for starting transactions and a db.Querier for
// executing queries outside of transactions.
type Store struct {
	// pool is the raw connection pool, used only to begin transactions.
	pool *sql.DB

	// q is the Querier used for non-transactional calls.
	q db.Querier

	shoutoutLimit int
}

// Option configures a Store.
type Option func(*Store)

// WithShoutoutLimit overrides DefaultShoutoutLimit. Values below 1 are ignored.
func WithShoutoutLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.shoutoutLimit = n
		}
	}
}

// New creates a Store from a live connection pool. The pool must already be
// open and verified before calling New.
func New(pool *sql.DB, q db.Querier, opts ...Option) *Store {
	s := &Store{pool: pool, q: q, shoutoutLimit: DefaultShoutoutLimit}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Q exposes the underlying Querier for single-query reads.
//
//	recipients, err := s.Q().ListRecipients(ctx)
func (s *Store) Q() db.Querier {
	return s.q
}

// Pool returns the connection pool. The Postgres advisory lock needs a
// dedicated connection from it.
func (s *Store) Pool() *sql.DB {
	return s.pool
}

// txQuerier is a function that receives a transactional Querier and returns an
// error. Returning a non-nil error causes withTx to roll back automatically.
type txQuerier func(ctx context.Context, q db.Querier) error

// maxTxAttempts bounds how often a transaction that lost a serialization
// conflict is run again.
const maxTxAttempts = 3

// withTx begins a transaction, passes a Querier scoped to that transaction to
// fn, and commits on success or rolls back on any error (including panics).
//
// Serializable isolation is used because the shoutout limit check is a
// read-then-write: two concurrent submissions must not both see two pending
// rows and both insert. The loser of such a conflict is retried, so fn must
// be safe to run more than once.
func (s *Store) withTx(ctx context.Context, fn txQuerier) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !isSerializationFailure(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn txQuerier) error {
	tx, err := s.pool.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	txQ := s.q.(*db.Queries).WithTx(tx)

	if err := fn(ctx, txQ); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("store: fn error: %w; rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit transaction: %w", err)
	}
	return nil
}

// isSerializationFailure reports whether err is a Postgres
// serialization_failure (40001).
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "40001"
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
