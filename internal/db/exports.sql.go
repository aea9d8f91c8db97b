package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/retriever-digest/internal/model"
)

// exportExtras is the passthrough block stored in export_records.extras.
type exportExtras struct {
	Invoices     []model.Order      `json:"invoices,omitempty"`
	TopEstimates []model.Order      `json:"topEstimates,omitempty"`
	BiggestOrder *model.Order       `json:"biggestOrder,omitempty"`
	TopPM        *model.Performance `json:"topPM,omitempty"`
	TopBD        *model.Performance `json:"topBD,omitempty"`
}

const exportColumns = `export_date, metrics, highlights, bd_performance, pm_performance,
       ai_insights, new_customer_estimates, ai_inspiration, extras,
       export_source, received_at`

const upsertExport = `-- name: UpsertExport :exec
INSERT INTO export_records (
    export_date, metrics, highlights, bd_performance, pm_performance,
    ai_insights, new_customer_estimates, extras, export_source, received_at
) VALUES ($1::date, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (export_date) DO UPDATE SET
    metrics                = EXCLUDED.metrics,
    highlights             = EXCLUDED.highlights,
    bd_performance         = EXCLUDED.bd_performance,
    pm_performance         = EXCLUDED.pm_performance,
    ai_insights            = EXCLUDED.ai_insights,
    new_customer_estimates = EXCLUDED.new_customer_estimates,
    extras                 = EXCLUDED.extras,
    export_source          = EXCLUDED.export_source,
    received_at            = EXCLUDED.received_at
`

// UpsertExport inserts or replaces the record for rec's day. ai_inspiration
// is never touched so a cached item survives re-ingestion.
func (q *Queries) UpsertExport(ctx context.Context, rec model.ExportRecord) error {
	metrics, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("db: marshal metrics: %w", err)
	}
	highlights, _ := json.Marshal(nonNil(rec.Highlights))
	bd, _ := json.Marshal(nonNil(rec.BDPerformance))
	pm, _ := json.Marshal(nonNil(rec.PMPerformance))

	_, err = q.db.ExecContext(ctx, upsertExport,
		rec.Date(),
		metrics,
		highlights,
		bd,
		pm,
		nullJSON(rec.AIInsights),
		nullJSON(rec.NewCustomerEstimates),
		nullJSON(exportExtras{
			Invoices:     rec.Invoices,
			TopEstimates: rec.TopEstimates,
			BiggestOrder: rec.BiggestOrder,
			TopPM:        rec.TopPM,
			TopBD:        rec.TopBD,
		}),
		rec.ExportSource,
		rec.ReceivedAt,
	)
	return err
}

const getExportByDate = `-- name: GetExportByDate :one
SELECT ` + exportColumns + `
FROM export_records
WHERE export_date = $1::date
`

func (q *Queries) GetExportByDate(ctx context.Context, day string) (model.ExportRecord, error) {
	return scanExport(q.db.QueryRowContext(ctx, getExportByDate, day))
}

const getLatestExport = `-- name: GetLatestExport :one
SELECT ` + exportColumns + `
FROM export_records
ORDER BY export_date DESC
LIMIT 1
`

func (q *Queries) GetLatestExport(ctx context.Context) (model.ExportRecord, error) {
	return scanExport(q.db.QueryRowContext(ctx, getLatestExport))
}

const listExportsInRange = `-- name: ListExportsInRange :many
SELECT ` + exportColumns + `
FROM export_records
WHERE export_date BETWEEN $1::date AND $2::date
ORDER BY export_date ASC
`

// ListExportsInRange returns records with start <= date <= end, oldest first.
func (q *Queries) ListExportsInRange(ctx context.Context, start, end string) ([]model.ExportRecord, error) {
	rows, err := q.db.QueryContext(ctx, listExportsInRange, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.ExportRecord{}
	for rows.Next() {
		rec, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setExportInspiration = `-- name: SetExportInspiration :execrows
UPDATE export_records
SET ai_inspiration = $2
WHERE export_date = $1::date
`

func (q *Queries) SetExportInspiration(ctx context.Context, day string, inspiration json.RawMessage) (int64, error) {
	res, err := q.db.ExecContext(ctx, setExportInspiration, day, inspiration)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ─── SCANNING ─────────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func scanExport(row scanner) (model.ExportRecord, error) {
	var (
		rec                         model.ExportRecord
		metrics, highlights, bd, pm []byte
		insights, nce, insp, extras pqtype.NullRawMessage
		exportDate                  time.Time
	)
	if err := row.Scan(
		&exportDate,
		&metrics,
		&highlights,
		&bd,
		&pm,
		&insights,
		&nce,
		&insp,
		&extras,
		&rec.ExportSource,
		&rec.ReceivedAt,
	); err != nil {
		return model.ExportRecord{}, err
	}
	// DATE columns come back as midnight UTC; keep the calendar day only.
	rec.ExportDate = time.Date(exportDate.Year(), exportDate.Month(), exportDate.Day(), 0, 0, 0, 0, time.UTC)

	for _, f := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"metrics", metrics, &rec.Metrics},
		{"highlights", highlights, &rec.Highlights},
		{"bd_performance", bd, &rec.BDPerformance},
		{"pm_performance", pm, &rec.PMPerformance},
	} {
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return model.ExportRecord{}, fmt.Errorf("db: decode %s: %w", f.name, err)
		}
	}

	if insights.Valid {
		if err := json.Unmarshal(insights.RawMessage, &rec.AIInsights); err != nil {
			return model.ExportRecord{}, fmt.Errorf("db: decode ai_insights: %w", err)
		}
	}
	if nce.Valid {
		if err := json.Unmarshal(nce.RawMessage, &rec.NewCustomerEstimates); err != nil {
			return model.ExportRecord{}, fmt.Errorf("db: decode new_customer_estimates: %w", err)
		}
	}
	if insp.Valid {
		var i model.Inspiration
		if err := json.Unmarshal(insp.RawMessage, &i); err != nil {
			return model.ExportRecord{}, fmt.Errorf("db: decode ai_inspiration: %w", err)
		}
		rec.AIInspiration = &i
	}
	if extras.Valid {
		var x exportExtras
		if err := json.Unmarshal(extras.RawMessage, &x); err != nil {
			return model.ExportRecord{}, fmt.Errorf("db: decode extras: %w", err)
		}
		rec.Invoices = x.Invoices
		rec.TopEstimates = x.TopEstimates
		rec.BiggestOrder = x.BiggestOrder
		rec.TopPM = x.TopPM
		rec.TopBD = x.TopBD
	}

	if rec.Highlights == nil {
		rec.Highlights = []model.Highlight{}
	}
	if rec.BDPerformance == nil {
		rec.BDPerformance = []model.Performance{}
	}
	if rec.PMPerformance == nil {
		rec.PMPerformance = []model.Performance{}
	}
	return rec, nil
}

// ─── HELPERS ──────────────────────────────────────────────────────────────────

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// nullJSON marshals v into a NullRawMessage; nil slices and pointers become
// SQL NULL.
func nullJSON(v any) pqtype.NullRawMessage {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" || string(b) == "{}" {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: b, Valid: true}
}
