// Package metrics folds daily export records into weekly rollups. Like the
// pace package it is pure: it never touches the store or the clock, so every
// function can be tested with hand-built records.
package metrics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/nyashahama/retriever-digest/internal/model"
)

// MaxHighlights caps the highlight lines carried into a rollup.
const MaxHighlights = 10

// ─── TYPES ────────────────────────────────────────────────────────────────────

// WeeklyMetrics is the sum of the daily metric fields across a week.
type WeeklyMetrics struct {
	Revenue          float64 `json:"revenue"`
	SalesCount       int     `json:"salesCount"`
	EstimatesCreated int     `json:"estimatesCreated"`
	NewCustomers     int     `json:"newCustomers"`
}

// Changes holds whole-number percentage deltas per metric.
type Changes struct {
	Revenue          int `json:"revenue"`
	SalesCount       int `json:"salesCount"`
	EstimatesCreated int `json:"estimatesCreated"`
	NewCustomers     int `json:"newCustomers"`
}

// Snapshot is the cumulative month/year-to-date figures from one record.
type Snapshot struct {
	MonthToDate model.ToDate `json:"monthToDate"`
	YearToDate  model.ToDate `json:"yearToDate"`
}

// ─── CORE FUNCTIONS ───────────────────────────────────────────────────────────

// AggregateWeek sums the daily fields of records. An empty slice yields the
// zero value. Revenue is summed in decimal so the result does not depend on
// record order.
func AggregateWeek(records []model.ExportRecord) WeeklyMetrics {
	var out WeeklyMetrics
	revenue := decimal.Zero
	for _, r := range records {
		revenue = revenue.Add(decimal.NewFromFloat(r.Metrics.DailyRevenue))
		out.SalesCount += r.Metrics.DailySalesCount
		out.EstimatesCreated += r.Metrics.DailyEstimatesCreated
		out.NewCustomers += r.Metrics.DailyNewCustomers
	}
	out.Revenue = revenue.InexactFloat64()
	return out
}

// PercentageChange returns the whole-number percent change from previous to
// current. A zero baseline reports 100 for any growth and 0 otherwise, so
// growth from nothing is still visible without dividing by zero.
//
// Rounding is half away from zero on the percentage (math.Round).
func PercentageChange(current, previous float64) int {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round((current - previous) / previous * 100))
}

// Compare returns the week-over-week deltas from last to this.
func Compare(this, last WeeklyMetrics) Changes {
	return Changes{
		Revenue:          PercentageChange(this.Revenue, last.Revenue),
		SalesCount:       PercentageChange(float64(this.SalesCount), float64(last.SalesCount)),
		EstimatesCreated: PercentageChange(float64(this.EstimatesCreated), float64(last.EstimatesCreated)),
		NewCustomers:     PercentageChange(float64(this.NewCustomers), float64(last.NewCustomers)),
	}
}

// AggregatePerformance merges same-named performers of the given role across
// records, summing orders and revenue, and returns them sorted by revenue
// descending. Ties keep first-seen order.
//
// Names match by exact, case-sensitive string equality: "Jim" and "jim" stay
// separate rows. Normalising them would change historical totals, so it is
// left to whoever owns the export data contract.
func AggregatePerformance(records []model.ExportRecord, role model.Role) []model.Performance {
	type acc struct {
		orders  int
		revenue decimal.Decimal
	}
	var names []string
	byName := make(map[string]*acc)

	for _, r := range records {
		for _, p := range r.Performers(role) {
			a, ok := byName[p.Name]
			if !ok {
				a = &acc{revenue: decimal.Zero}
				byName[p.Name] = a
				names = append(names, p.Name)
			}
			a.orders += p.OrdersCompleted
			a.revenue = a.revenue.Add(decimal.NewFromFloat(p.Revenue))
		}
	}

	out := make([]model.Performance, len(names))
	for i, name := range names {
		a := byName[name]
		out[i] = model.Performance{
			Name:            name,
			OrdersCompleted: a.orders,
			Revenue:         a.revenue.InexactFloat64(),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Revenue > out[j].Revenue
	})
	return out
}

// AggregateHighlights concatenates highlight descriptions in chronological
// record order and keeps the first MaxHighlights.
func AggregateHighlights(records []model.ExportRecord) []string {
	out := make([]string, 0, MaxHighlights)
	for _, r := range Chronological(records) {
		for _, h := range r.Highlights {
			if len(out) == MaxHighlights {
				return out
			}
			out = append(out, h.Description)
		}
	}
	return out
}

// LatestToDateSnapshot returns the cumulative figures of the most recent
// single record: the latest of thisWeek, else the latest of lastWeek, else
// zeros. To-date figures are never summed across records.
func LatestToDateSnapshot(thisWeek, lastWeek []model.ExportRecord) Snapshot {
	latest, ok := Latest(thisWeek)
	if !ok {
		latest, ok = Latest(lastWeek)
	}
	if !ok {
		return Snapshot{}
	}
	return Snapshot{
		MonthToDate: latest.Metrics.MonthToDate(),
		YearToDate:  latest.Metrics.YearToDate(),
	}
}

// ─── HELPERS ──────────────────────────────────────────────────────────────────

// Latest returns the record with the greatest ExportDate.
func Latest(records []model.ExportRecord) (model.ExportRecord, bool) {
	if len(records) == 0 {
		return model.ExportRecord{}, false
	}
	best := records[0]
	for _, r := range records[1:] {
		if r.ExportDate.After(best.ExportDate) {
			best = r
		}
	}
	return best, true
}

// Chronological returns a copy of records sorted by ExportDate ascending.
func Chronological(records []model.ExportRecord) []model.ExportRecord {
	out := make([]model.ExportRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExportDate.Before(out[j].ExportDate)
	})
	return out
}
