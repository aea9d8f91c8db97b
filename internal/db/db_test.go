package db_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/retriever-digest/internal/db"
	"github.com/nyashahama/retriever-digest/internal/model"
)

func newMock(t *testing.T) (*db.Queries, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		conn.Close()
	})
	return db.New(conn), mock
}

var exportCols = []string{
	"export_date", "metrics", "highlights", "bd_performance", "pm_performance",
	"ai_insights", "new_customer_estimates", "ai_inspiration", "extras",
	"export_source", "received_at",
}

func TestGetExportByDate_DecodesJSONColumns(t *testing.T) {
	q, mock := newMock(t)
	received := time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE export_date = $1::date")).
		WithArgs("2026-10-14").
		WillReturnRows(sqlmock.NewRows(exportCols).AddRow(
			time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
			[]byte(`{"dailyRevenue":1250.5,"dailySalesCount":4,"monthToDateRevenue":9000}`),
			[]byte(`[{"description":"Record day"}]`),
			[]byte(`[]`),
			[]byte(`[{"name":"Alice","ordersCompleted":3,"revenue":800}]`),
			nil,
			nil,
			[]byte(`{"kind":"quote","text":"Keep going.","attribution":"Unknown","source":"fallback"}`),
			[]byte(`{"biggestOrder":{"number":"INV-9","accountName":"Acme","amount":4000}}`),
			"nightly",
			received,
		))

	rec, err := q.GetExportByDate(context.Background(), "2026-10-14")
	require.NoError(t, err)

	assert.Equal(t, "2026-10-14", rec.Date())
	assert.Equal(t, 1250.5, rec.Metrics.DailyRevenue)
	assert.Equal(t, 9000.0, rec.Metrics.MonthToDateRevenue)
	require.Len(t, rec.Highlights, 1)
	assert.NotNil(t, rec.BDPerformance)
	assert.Empty(t, rec.BDPerformance)
	require.Len(t, rec.PMPerformance, 1)
	assert.Nil(t, rec.AIInsights)
	require.NotNil(t, rec.AIInspiration)
	assert.Equal(t, model.KindQuote, rec.AIInspiration.Kind)
	require.NotNil(t, rec.BiggestOrder)
	assert.Equal(t, "INV-9", rec.BiggestOrder.Number)
	assert.Equal(t, received, rec.ReceivedAt)
}

func TestGetLatestExport_NoRows(t *testing.T) {
	q, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY export_date DESC")).
		WillReturnRows(sqlmock.NewRows(exportCols))

	_, err := q.GetLatestExport(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUpsertExport_LeavesInspirationAlone(t *testing.T) {
	q, mock := newMock(t)
	rec := model.ExportRecord{
		ExportDate:   time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
		Metrics:      model.Metrics{DailyRevenue: 10},
		ExportSource: "nightly",
		ReceivedAt:   time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(`INSERT INTO export_records`).
		WithArgs("2026-10-14", sqlmock.AnyArg(), []byte(`[]`), []byte(`[]`), []byte(`[]`),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "nightly", rec.ReceivedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, q.UpsertExport(context.Background(), rec))
}

func TestSetExportInspiration_RowsAffected(t *testing.T) {
	q, mock := newMock(t)
	raw := json.RawMessage(`{"kind":"joke","text":"ha"}`)
	mock.ExpectExec(`UPDATE export_records`).
		WithArgs("2026-10-14", raw).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := q.SetExportInspiration(context.Background(), "2026-10-14", raw)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListExportsInRange_EmptyIsNonNil(t *testing.T) {
	q, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("BETWEEN $1::date AND $2::date")).
		WithArgs("2026-10-05", "2026-10-11").
		WillReturnRows(sqlmock.NewRows(exportCols))

	got, err := q.ListExportsInRange(context.Background(), "2026-10-05", "2026-10-11")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUpsertGoal_ReturnsRow(t *testing.T) {
	q, mock := newMock(t)
	now := time.Now().UTC()
	g := model.Goal{PeriodType: model.PeriodMonthly, SalesRevenue: decimal.RequireFromString("50000.00"), SalesCount: 100}

	mock.ExpectQuery(`INSERT INTO goals`).
		WithArgs("MONTHLY", g.SalesRevenue, 100, 0, 0).
		WillReturnRows(sqlmock.NewRows([]string{"period_type", "sales_revenue", "sales_count", "estimates_created", "new_customers", "updated_at"}).
			AddRow("MONTHLY", "50000.00", 100, 0, 0, now))

	got, err := q.UpsertGoal(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, model.PeriodMonthly, got.PeriodType)
	assert.True(t, got.SalesRevenue.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, now, got.UpdatedAt)
}

var recipientCols = []string{"id", "name", "email", "active", "birthday", "opt_out_digest", "opt_out_birthday", "created_at"}

func TestListBirthdayRecipients_PassesArray(t *testing.T) {
	q, mock := newMock(t)
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("birthday = ANY($1::text[])")).
		WithArgs(`{"10-17","10-18","10-19"}`).
		WillReturnRows(sqlmock.NewRows(recipientCols).
			AddRow(id.String(), "Jo", "jo@example.com", true, "10-18", false, false, time.Now()))

	got, err := q.ListBirthdayRecipients(context.Background(), []string{"10-17", "10-18", "10-19"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	require.NotNil(t, got[0].Birthday)
	assert.Equal(t, "10-18", *got[0].Birthday)
}

func TestCreateRecipient_NullBirthday(t *testing.T) {
	q, mock := newMock(t)
	r := model.Recipient{ID: uuid.New(), Name: "Jo", Email: "jo@example.com", Active: true}
	mock.ExpectQuery(`INSERT INTO recipients`).
		WithArgs(r.ID, "Jo", "jo@example.com", true, nil, false, false).
		WillReturnRows(sqlmock.NewRows(recipientCols).
			AddRow(r.ID.String(), "Jo", "jo@example.com", true, nil, false, false, time.Now()))

	got, err := q.CreateRecipient(context.Background(), r)
	require.NoError(t, err)
	assert.Nil(t, got.Birthday)
}

func TestDeleteShoutouts(t *testing.T) {
	q, mock := newMock(t)
	a, b := uuid.New(), uuid.New()

	n, err := q.DeleteShoutouts(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n, "empty id list runs no statement")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM shoutouts WHERE id = ANY($1::uuid[])")).
		WithArgs(`{"` + a.String() + `","` + b.String() + `"}`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err = q.DeleteShoutouts(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestIncrementDisplay_IsSingleUpsert(t *testing.T) {
	q, mock := newMock(t)
	shown := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("times_displayed = testimonial_displays.times_displayed + 1")).
		WithArgs("r1", sqlmock.AnyArg(), shown).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, q.IncrementDisplay(context.Background(), model.Testimonial{ID: "r1", Text: "Great"}, shown))
}

func TestListDisplayRecords(t *testing.T) {
	q, mock := newMock(t)
	shown := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM testimonial_displays`).
		WithArgs(`{"r1","r2"}`).
		WillReturnRows(sqlmock.NewRows([]string{"testimonial_id", "testimonial", "times_displayed", "last_shown_at"}).
			AddRow("r1", []byte(`{"id":"r1","text":"Great"}`), 2, shown).
			AddRow("r2", []byte(`{"id":"r2","text":"Fine"}`), 0, nil))

	got, err := q.ListDisplayRecords(context.Background(), []string{"r1", "r2"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Great", got[0].Testimonial.Text)
	require.NotNil(t, got[0].LastShownAt)
	assert.Equal(t, shown, *got[0].LastShownAt)
	assert.Nil(t, got[1].LastShownAt)
}

func TestInsertDigestRun(t *testing.T) {
	q, mock := newMock(t)
	run := model.DigestRun{
		ID:         uuid.New(),
		Kind:       model.DigestDaily,
		DigestDate: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
		Headline:   "Big day",
		Sent:       3,
	}
	mock.ExpectExec(`INSERT INTO digest_runs`).
		WithArgs(run.ID, "daily", "2026-10-14", "Big day", "{}", 3, 0, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, q.InsertDigestRun(context.Background(), run))
}
