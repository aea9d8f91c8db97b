package metrics

import (
	"time"

	"github.com/nyashahama/retriever-digest/internal/model"
)

// Week is the folded view of one Mon–Fri window.
type Week struct {
	Totals     WeeklyMetrics `json:"totals"`
	Changes    Changes       `json:"changes"`
	ToDate     Snapshot      `json:"toDate"`
	Highlights []string      `json:"highlights"`
	Days       int           `json:"days"`

	// Record is a synthetic ExportRecord carrying the week totals in its daily
	// fields and the latest to-date snapshot in its cumulative fields, so the
	// weekly digest runs through the same context builder as the daily one.
	Record model.ExportRecord `json:"-"`
	// Previous is the same synthetic record for the prior week, or nil when
	// the prior week has no records.
	Previous *model.ExportRecord `json:"-"`
}

// Rollup folds thisWeek and lastWeek into a Week. end dates the synthetic
// record when thisWeek is empty.
func Rollup(thisWeek, lastWeek []model.ExportRecord, end time.Time) Week {
	this := AggregateWeek(thisWeek)
	last := AggregateWeek(lastWeek)
	snap := LatestToDateSnapshot(thisWeek, lastWeek)

	w := Week{
		Totals:     this,
		Changes:    Compare(this, last),
		ToDate:     snap,
		Highlights: AggregateHighlights(thisWeek),
		Days:       len(thisWeek),
		Record:     synthesize(thisWeek, this, snap, end),
	}
	if len(lastWeek) > 0 {
		prevEnd, _ := Latest(lastWeek)
		prev := synthesize(lastWeek, last, LatestToDateSnapshot(lastWeek, nil), prevEnd.ExportDate)
		w.Previous = &prev
	}
	return w
}

func synthesize(records []model.ExportRecord, totals WeeklyMetrics, snap Snapshot, end time.Time) model.ExportRecord {
	rec := model.ExportRecord{
		ExportDate: end,
		Metrics: model.Metrics{
			DailyRevenue:          totals.Revenue,
			DailySalesCount:       totals.SalesCount,
			DailyEstimatesCreated: totals.EstimatesCreated,
			DailyNewCustomers:     totals.NewCustomers,
		}.WithToDate(snap.MonthToDate, snap.YearToDate),
		BDPerformance: AggregatePerformance(records, model.RoleBD),
		PMPerformance: AggregatePerformance(records, model.RolePM),
		ExportSource:  "weekly-rollup",
	}

	highlights := AggregateHighlights(records)
	rec.Highlights = make([]model.Highlight, len(highlights))
	for i, h := range highlights {
		rec.Highlights[i] = model.Highlight{Description: h}
	}

	// Explicit per-day biggest orders compete with every invoice of the week;
	// the context builder derives the week's top orders from the pool.
	for _, r := range Chronological(records) {
		rec.Invoices = append(rec.Invoices, r.Invoices...)
		if r.BiggestOrder != nil && !containsOrder(r.Invoices, *r.BiggestOrder) {
			rec.Invoices = append(rec.Invoices, *r.BiggestOrder)
		}
		rec.NewCustomerEstimates = append(rec.NewCustomerEstimates, r.NewCustomerEstimates...)
	}

	if latest, ok := Latest(records); ok {
		rec.ExportDate = latest.ExportDate
		rec.AIInsights = latest.AIInsights
		rec.AIInspiration = latest.AIInspiration
		rec.ReceivedAt = latest.ReceivedAt
	}
	return rec
}

func containsOrder(list []model.Order, o model.Order) bool {
	for _, x := range list {
		if x.Number != "" && x.Number == o.Number {
			return true
		}
	}
	return false
}
