// Package richctx composes one digest's consolidated snapshot: metrics,
// day-over-day comparison, goal pace, notable orders, top performers and the
// recent-digest history the content generator uses to avoid repeating itself.
//
// Build does no I/O. Callers load records and pass them in.
package richctx

import (
	"errors"
	"sort"
	"time"

	"github.com/nyashahama/retriever-digest/internal/dates"
	"github.com/nyashahama/retriever-digest/internal/metrics"
	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/pace"
)

// ErrMissingDate is returned when the current record has no export date. It
// means the upstream contract was broken and is never papered over.
var ErrMissingDate = errors.New("richctx: current record has no date")

const (
	// MaxTopOrders is the number of notable orders carried.
	MaxTopOrders = 3
	// DefaultRecentWindow bounds the recent-digest history.
	DefaultRecentWindow = 7 * 24 * time.Hour
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Input is everything Build needs.
type Input struct {
	Current  *model.ExportRecord
	Previous *model.ExportRecord // nil: no comparison
	Goal     *model.Goal         // monthly goal; nil: no goal progress
	IsWeekly bool
	Recent   []model.RecentDigest

	Pace         pace.Config
	RecentWindow time.Duration // zero means DefaultRecentWindow
}

// Comparison is the delta against the previous record. For weekly digests the
// records are week rollups, so this is week-over-week.
type Comparison struct {
	PreviousDate string                `json:"previousDate"`
	Previous     metrics.WeeklyMetrics `json:"previous"`
	Changes      metrics.Changes       `json:"changes"`
}

// TopPerformers holds at most one PM and one BD.
type TopPerformers struct {
	PM *model.Performance `json:"pm,omitempty"`
	BD *model.Performance `json:"bd,omitempty"`
}

// Context is the consolidated snapshot. Optional sections are nil when the
// source data is absent; lists are never nil.
type Context struct {
	Date     string `json:"date"`
	IsWeekly bool   `json:"isWeekly"`

	Today       metrics.WeeklyMetrics `json:"today"`
	MonthToDate model.ToDate          `json:"monthToDate"`
	YearToDate  model.ToDate          `json:"yearToDate"`

	Comparison   *Comparison    `json:"comparison,omitempty"`
	GoalProgress *pace.Progress `json:"goalProgress,omitempty"`

	BiggestOrder  *model.Order  `json:"biggestOrder,omitempty"`
	TopOrders     []model.Order `json:"topOrders"`
	TopPerformers TopPerformers `json:"topPerformers"`

	Highlights           []string             `json:"highlights"`
	Insights             []model.Insight      `json:"insights"`
	NewCustomerEstimates []model.Order        `json:"newCustomerEstimates"`
	RecentDigests        []model.RecentDigest `json:"recentDigests"`
}

// ─── BUILD ────────────────────────────────────────────────────────────────────

// Build composes the context for in.Current.
func Build(in Input) (Context, error) {
	cur := in.Current
	if cur == nil || cur.ExportDate.IsZero() {
		return Context{}, ErrMissingDate
	}

	c := Context{
		Date:                 cur.Date(),
		IsWeekly:             in.IsWeekly,
		Today:                totals(cur.Metrics),
		MonthToDate:          cur.Metrics.MonthToDate(),
		YearToDate:           cur.Metrics.YearToDate(),
		TopPerformers:        ResolveTopPerformers(*cur),
		Highlights:           highlights(cur.Highlights),
		Insights:             orEmpty(cur.AIInsights),
		NewCustomerEstimates: orEmpty(cur.NewCustomerEstimates),
		RecentDigests:        recentWithin(in.Recent, cur.ExportDate, in.RecentWindow),
	}
	c.BiggestOrder, c.TopOrders = ResolveTopOrders(*cur)

	if in.Previous != nil {
		prev := totals(in.Previous.Metrics)
		c.Comparison = &Comparison{
			PreviousDate: in.Previous.Date(),
			Previous:     prev,
			Changes:      metrics.Compare(c.Today, prev),
		}
	}

	if in.Goal != nil {
		p := pace.Calculate(
			in.Goal.SalesRevenue.InexactFloat64(),
			cur.Metrics.MonthToDateRevenue,
			cur.ExportDate,
			in.Pace,
		)
		c.GoalProgress = &p
	}
	return c, nil
}

// ─── RESOLUTION ───────────────────────────────────────────────────────────────

// ResolveTopOrders returns the biggest order and up to MaxTopOrders notable
// orders.
//
// Precedence for the biggest order: the record's explicit BiggestOrder, else
// the largest invoice. The top list is always the invoices by amount
// descending and ignores the explicit field.
func ResolveTopOrders(rec model.ExportRecord) (*model.Order, []model.Order) {
	top := append([]model.Order{}, rec.Invoices...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Amount > top[j].Amount })
	if len(top) > MaxTopOrders {
		top = top[:MaxTopOrders]
	}

	switch {
	case rec.BiggestOrder != nil:
		biggest := *rec.BiggestOrder
		return &biggest, top
	case len(top) > 0:
		biggest := top[0]
		return &biggest, top
	default:
		return nil, top
	}
}

// ResolveTopPerformers prefers the record's explicit TopPM/TopBD and
// otherwise takes the highest-revenue entry of each list. Ties keep list
// order.
func ResolveTopPerformers(rec model.ExportRecord) TopPerformers {
	return TopPerformers{
		PM: topOf(rec.TopPM, rec.PMPerformance),
		BD: topOf(rec.TopBD, rec.BDPerformance),
	}
}

func topOf(explicit *model.Performance, list []model.Performance) *model.Performance {
	if explicit != nil {
		p := *explicit
		return &p
	}
	if len(list) == 0 {
		return nil
	}
	best := list[0]
	for _, p := range list[1:] {
		if p.Revenue > best.Revenue {
			best = p
		}
	}
	return &best
}

// ─── HELPERS ──────────────────────────────────────────────────────────────────

func totals(m model.Metrics) metrics.WeeklyMetrics {
	return metrics.WeeklyMetrics{
		Revenue:          m.DailyRevenue,
		SalesCount:       m.DailySalesCount,
		EstimatesCreated: m.DailyEstimatesCreated,
		NewCustomers:     m.DailyNewCustomers,
	}
}

func highlights(hs []model.Highlight) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.Description)
	}
	return out
}

// recentWithin keeps digests dated in [ref-window, ref]. Undated or
// unparsable entries are dropped.
func recentWithin(recent []model.RecentDigest, ref time.Time, window time.Duration) []model.RecentDigest {
	if window <= 0 {
		window = DefaultRecentWindow
	}
	end := dates.EndOfDay(ref)
	start := dates.StartOfDay(ref.Add(-window))
	out := []model.RecentDigest{}
	for _, d := range recent {
		t, err := dates.ParseDay(d.Date, ref.Location())
		if err != nil || t.Before(start) || t.After(end) {
			continue
		}
		if d.AccountNames == nil {
			d.AccountNames = []string{}
		}
		out = append(out, d)
	}
	return out
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
