package db

import (
	"context"

	"github.com/nyashahama/retriever-digest/internal/model"
)

const goalColumns = `period_type, sales_revenue, sales_count, estimates_created, new_customers, updated_at`

const getGoal = `-- name: GetGoal :one
SELECT ` + goalColumns + `
FROM goals
WHERE period_type = $1
`

func (q *Queries) GetGoal(ctx context.Context, period model.PeriodType) (model.Goal, error) {
	return scanGoal(q.db.QueryRowContext(ctx, getGoal, string(period)))
}

const listGoals = `-- name: ListGoals :many
SELECT ` + goalColumns + `
FROM goals
ORDER BY period_type DESC
`

// ListGoals returns MONTHLY before ANNUAL.
func (q *Queries) ListGoals(ctx context.Context) ([]model.Goal, error) {
	rows, err := q.db.QueryContext(ctx, listGoals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertGoal = `-- name: UpsertGoal :one
INSERT INTO goals (period_type, sales_revenue, sales_count, estimates_created, new_customers, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (period_type) DO UPDATE SET
    sales_revenue     = EXCLUDED.sales_revenue,
    sales_count       = EXCLUDED.sales_count,
    estimates_created = EXCLUDED.estimates_created,
    new_customers     = EXCLUDED.new_customers,
    updated_at        = now()
RETURNING ` + goalColumns

func (q *Queries) UpsertGoal(ctx context.Context, g model.Goal) (model.Goal, error) {
	return scanGoal(q.db.QueryRowContext(ctx, upsertGoal,
		string(g.PeriodType),
		g.SalesRevenue,
		g.SalesCount,
		g.EstimatesCreated,
		g.NewCustomers,
	))
}

func scanGoal(row scanner) (model.Goal, error) {
	var (
		g      model.Goal
		period string
	)
	err := row.Scan(
		&period,
		&g.SalesRevenue,
		&g.SalesCount,
		&g.EstimatesCreated,
		&g.NewCustomers,
		&g.UpdatedAt,
	)
	g.PeriodType = model.PeriodType(period)
	return g, err
}
