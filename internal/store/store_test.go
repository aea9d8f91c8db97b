package store_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nyashahama/retriever-digest/internal/db"
	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/store"
)

// ─── TEST INFRASTRUCTURE ──────────────────────────────────────────────────────

var recipientCols = []string{"id", "name", "email", "active", "birthday", "opt_out_digest", "opt_out_birthday", "created_at"}

func newMockStore(t *testing.T, opts ...store.Option) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		conn.Close()
	})
	return store.New(conn, db.New(conn), opts...), mock
}

func recipientRow(id uuid.UUID, name string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(recipientCols).
		AddRow(id.String(), name, strings.ToLower(name)+"@example.com", active, nil, false, false, time.Now())
}

// ─── SubmitShoutout ──────────────────────────────────────────────────────────

func TestSubmitShoutout_AcceptsBelowLimit(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM recipients\nWHERE id = $1")).
		WithArgs(id).WillReturnRows(recipientRow(id, "Jo", true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM shoutouts")).
		WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO shoutouts")).
		WithArgs(sqlmock.AnyArg(), id, "Great work on the banner job").
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipient_id", "message", "created_at"}).
			AddRow(uuid.New().String(), id.String(), "Great work on the banner job", time.Now()))
	mock.ExpectCommit()

	got, err := st.SubmitShoutout(context.Background(), id, "Great work on the banner job")
	if err != nil {
		t.Fatalf("SubmitShoutout: %v", err)
	}
	if got.RecipientName != "Jo" {
		t.Errorf("recipient name: got %q", got.RecipientName)
	}
	if got.RecipientID != id {
		t.Error("recipient id mismatch")
	}
}

func TestSubmitShoutout_RejectsAtLimit(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM recipients\nWHERE id = $1")).
		WithArgs(id).WillReturnRows(recipientRow(id, "Jo", true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM shoutouts")).
		WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	_, err := st.SubmitShoutout(context.Background(), id, "one more")
	if !errors.Is(err, store.ErrShoutoutLimit) {
		t.Fatalf("expected ErrShoutoutLimit, got: %v", err)
	}
	if err.Error() != "You already have 3 shoutouts waiting for the next digest" {
		t.Errorf("message: got %q", err.Error())
	}
}

func TestSubmitShoutout_RetriesSerializationFailure(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()
	conflict := &pq.Error{Code: "40001", Message: "could not serialize access"}

	expectSubmit := func(commitErr error) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM recipients\nWHERE id = $1")).
			WithArgs(id).WillReturnRows(recipientRow(id, "Jo", true))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM shoutouts")).
			WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO shoutouts")).
			WithArgs(sqlmock.AnyArg(), id, "Nice save").
			WillReturnRows(sqlmock.NewRows([]string{"id", "recipient_id", "message", "created_at"}).
				AddRow(uuid.New().String(), id.String(), "Nice save", time.Now()))
		mock.ExpectCommit().WillReturnError(commitErr)
	}
	expectSubmit(conflict)
	expectSubmit(nil)

	got, err := st.SubmitShoutout(context.Background(), id, "Nice save")
	if err != nil {
		t.Fatalf("SubmitShoutout: %v", err)
	}
	if got.RecipientID != id {
		t.Error("recipient id mismatch")
	}
}

func TestSubmitShoutout_GivesUpAfterRepeatedConflicts(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()
	conflict := &pq.Error{Code: "40001", Message: "could not serialize access"}

	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM recipients\nWHERE id = $1")).
			WithArgs(id).WillReturnError(conflict)
		mock.ExpectRollback()
	}

	_, err := st.SubmitShoutout(context.Background(), id, "Nice save")
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "40001" {
		t.Fatalf("expected serialization failure, got: %v", err)
	}
}

func TestSubmitShoutout_LimitIsConfigurable(t *testing.T) {
	st, mock := newMockStore(t, store.WithShoutoutLimit(5))
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM recipients\nWHERE id = $1")).
		WithArgs(id).WillReturnRows(recipientRow(id, "Jo", true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM shoutouts")).
		WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	_, err := st.SubmitShoutout(context.Background(), id, "hi")
	var limitErr *store.LimitError
	if !errors.As(err, &limitErr) || limitErr.Limit != 5 {
		t.Fatalf("expected LimitError{5}, got: %v", err)
	}
}

func TestSubmitShoutout_RecipientChecks(t *testing.T) {
	tests := []struct {
		name string
		rows *sqlmock.Rows
		want error
	}{
		{"missing", sqlmock.NewRows(recipientCols), store.ErrRecipientNotFound},
		{"inactive", recipientRow(uuid.New(), "Jo", false), store.ErrRecipientInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, mock := newMockStore(t)
			mock.ExpectBegin()
			mock.ExpectQuery(`FROM recipients`).WillReturnRows(tt.rows)
			mock.ExpectRollback()

			_, err := st.SubmitShoutout(context.Background(), uuid.New(), "hi")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}
		})
	}
}

func TestSubmitShoutoutByEmail_MatchesCaseInsensitively(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(email) = lower($1)")).
		WithArgs("Jo@Example.com").WillReturnRows(recipientRow(id, "Jo", true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM shoutouts")).
		WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO shoutouts")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipient_id", "message", "created_at"}).
			AddRow(uuid.New().String(), id.String(), "Thanks team", time.Now()))
	mock.ExpectCommit()

	if _, err := st.SubmitShoutoutByEmail(context.Background(), "Jo@Example.com", "Thanks team"); err != nil {
		t.Fatalf("SubmitShoutoutByEmail: %v", err)
	}
}

// ─── Recipients ──────────────────────────────────────────────────────────────

func TestCreateRecipient_DuplicateEmail(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery(`INSERT INTO recipients`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	_, err := st.CreateRecipient(context.Background(), model.Recipient{Name: "Jo", Email: "jo@example.com", Active: true})
	if !errors.Is(err, store.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got: %v", err)
	}
}

func TestToggleRecipient_FlipsActive(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM recipients`).WithArgs(id).WillReturnRows(recipientRow(id, "Jo", true))
	mock.ExpectQuery(`UPDATE recipients SET active`).WithArgs(id, false).
		WillReturnRows(recipientRow(id, "Jo", false))
	mock.ExpectCommit()

	got, err := st.ToggleRecipient(context.Background(), id)
	if err != nil {
		t.Fatalf("ToggleRecipient: %v", err)
	}
	if got.Active {
		t.Error("expected recipient to be inactive")
	}
}

func TestDeleteRecipient_NotFound(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM recipients`).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := st.DeleteRecipient(context.Background(), uuid.New()); !errors.Is(err, store.ErrRecipientNotFound) {
		t.Errorf("expected ErrRecipientNotFound, got: %v", err)
	}
}

// ─── CompleteDigestSend ──────────────────────────────────────────────────────

func TestCompleteDigestSend_PurgesEmittedOnly(t *testing.T) {
	st, mock := newMockStore(t)
	a, b := uuid.New(), uuid.New()
	shown := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM shoutouts")).
		WithArgs(`{"` + a.String() + `","` + b.String() + `"}`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO testimonial_displays`).
		WithArgs("r1", sqlmock.AnyArg(), shown).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO digest_runs`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := st.CompleteDigestSend(context.Background(), store.CompleteDigestParams{
		ShoutoutIDs:  []uuid.UUID{a, b},
		Testimonials: []model.Testimonial{{ID: "r1", Text: "Great"}},
		Purge:        true,
		Run:          model.DigestRun{Kind: model.DigestDaily, DigestDate: shown, Sent: 2, CreatedAt: shown},
	})
	if err != nil {
		t.Fatalf("CompleteDigestSend: %v", err)
	}
}

func TestCompleteDigestSend_NoPurgeStillRecordsRun(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO digest_runs`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := st.CompleteDigestSend(context.Background(), store.CompleteDigestParams{
		ShoutoutIDs: []uuid.UUID{uuid.New()},
		Run:         model.DigestRun{Kind: model.DigestWeekly, DigestDate: time.Now(), Failed: 3},
	})
	if err != nil {
		t.Fatalf("CompleteDigestSend: %v", err)
	}
}

func TestCompleteDigestSend_RollsBackOnFailure(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM shoutouts")).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := st.CompleteDigestSend(context.Background(), store.CompleteDigestParams{
		ShoutoutIDs: []uuid.UUID{uuid.New()},
		Purge:       true,
		Run:         model.DigestRun{Kind: model.DigestDaily, DigestDate: time.Now(), Sent: 1},
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

// ─── Reads ───────────────────────────────────────────────────────────────────

func TestGoal_MissingRowIsNil(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery(`FROM goals`).WithArgs("MONTHLY").
		WillReturnError(sql.ErrNoRows)

	g, err := st.Goal(context.Background(), model.PeriodMonthly)
	if err != nil {
		t.Fatalf("Goal: %v", err)
	}
	if g != nil {
		t.Errorf("expected no goal, got %+v", g)
	}
}

func TestGoal_QueryErrorIsReturned(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery(`FROM goals`).WithArgs("MONTHLY").
		WillReturnError(errors.New("connection reset"))

	if _, err := st.Goal(context.Background(), model.PeriodMonthly); err == nil {
		t.Fatal("expected error")
	}
}

func TestRecentDigests_SkipsMockRuns(t *testing.T) {
	st, mock := newMockStore(t)
	since := time.Date(2026, 10, 8, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "kind", "digest_date", "headline", "account_names", "sent", "failed", "is_mock", "created_at"}

	mock.ExpectQuery(`FROM digest_runs`).WithArgs(since).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(uuid.New().String(), "daily", time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), "Record Tuesday", `{Acme,"Blue Sky"}`, 4, 0, false, time.Now()).
			AddRow(uuid.New().String(), "daily", time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC), "Sample", `{}`, 4, 0, true, time.Now()))

	got, err := st.RecentDigests(context.Background(), since)
	if err != nil {
		t.Fatalf("RecentDigests: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 digest, got %d", len(got))
	}
	if got[0].Date != "2026-10-14" || got[0].Headline != "Record Tuesday" {
		t.Errorf("unexpected digest: %+v", got[0])
	}
	if len(got[0].AccountNames) != 2 || got[0].AccountNames[1] != "Blue Sky" {
		t.Errorf("account names: %v", got[0].AccountNames)
	}
}

// ─── INTEGRATION ─────────────────────────────────────────────────────────────

// openTestDB returns a *sql.DB from DATABASE_URL. Skips if the env var is
// not set so the suite still passes without a Postgres instance.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping store integration tests")
	}
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if err := pool.PingContext(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestSubmitShoutout_Integration_FourthRejected(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	st := store.New(pool, db.New(pool))

	r, err := st.CreateRecipient(ctx, model.Recipient{
		Name:   "Limit Test",
		Email:  "limit-" + uuid.NewString() + "@example.com",
		Active: true,
	})
	if err != nil {
		t.Fatalf("create recipient: %v", err)
	}
	t.Cleanup(func() { _ = st.DeleteRecipient(ctx, r.ID) })

	for i := 0; i < store.DefaultShoutoutLimit; i++ {
		if _, err := st.SubmitShoutout(ctx, r.ID, "thanks"); err != nil {
			t.Fatalf("shoutout %d: %v", i+1, err)
		}
	}
	if _, err := st.SubmitShoutout(ctx, r.ID, "one too many"); !errors.Is(err, store.ErrShoutoutLimit) {
		t.Errorf("expected ErrShoutoutLimit, got: %v", err)
	}
}
