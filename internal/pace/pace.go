// Package pace computes goal progress and the three-state pace classification
// for month-to-date figures. It is dependency-free apart from model and dates
// and can be tested without a database.
package pace

import (
	"fmt"
	"math"
	"time"

	"github.com/nyashahama/retriever-digest/internal/dates"
	"github.com/nyashahama/retriever-digest/internal/model"
)

// ─── CONSTANTS ────────────────────────────────────────────────────────────────

// DefaultTolerance is the ±band around expected progress that still counts as
// on track.
const DefaultTolerance = 0.05

// Status is the pace classification. String values are what the templates
// and the content generator see.
type Status string

const (
	StatusAhead   Status = "ahead"
	StatusOnTrack Status = "on_track"
	StatusBehind  Status = "behind"
)

// ─── CONFIG ───────────────────────────────────────────────────────────────────

// Config tunes the classifier.
type Config struct {
	Tolerance float64 `json:"tolerance"`
}

// DefaultConfig returns the ±5% band.
func DefaultConfig() Config { return Config{Tolerance: DefaultTolerance} }

// Validate checks the tolerance is a fraction in [0, 1). Call this once at
// startup, not per calculation.
func (c Config) Validate() error {
	if math.IsNaN(c.Tolerance) || c.Tolerance < 0 || c.Tolerance >= 1 {
		return fmt.Errorf("pace config: tolerance must be in [0,1), got %v", c.Tolerance)
	}
	return nil
}

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Progress is the full pace computation for one goal.
type Progress struct {
	Goal              float64 `json:"goal"`
	Actual            float64 `json:"actual"`
	ProgressPercent   int     `json:"progressPercent"` // not capped; 130 means 30% over
	AmountToGoal      float64 `json:"amountToGoal"`
	RequiredDailyPace float64 `json:"requiredDailyPace"`
	ActualDailyPace   float64 `json:"actualDailyPace"`
	ExpectedProgress  float64 `json:"expectedProgress"`
	DayOfMonth        int     `json:"dayOfMonth"`
	DaysInMonth       int     `json:"daysInMonth"`
	DaysRemaining     int     `json:"daysRemaining"`
	Status            Status  `json:"paceStatus"`
}

// Bar is one rendered progress bar. Percent is capped at 100; the uncapped
// figure lives in Progress.
type Bar struct {
	Label   string  `json:"label"`
	Actual  float64 `json:"actual"`
	Target  float64 `json:"target"`
	Percent int     `json:"percent"`
}

// ─── CORE FUNCTIONS ───────────────────────────────────────────────────────────

// Calculate returns the pace of monthToDate against goal as of ref.
//
// A zero goal reports 0% and on_track: with nothing to hit, neither ahead nor
// behind is meaningful.
func Calculate(goal, monthToDate float64, ref time.Time, cfg Config) Progress {
	dim := dates.DaysInMonth(ref)
	dom := ref.Day()
	p := Progress{
		Goal:          goal,
		Actual:        monthToDate,
		DayOfMonth:    dom,
		DaysInMonth:   dim,
		DaysRemaining: dim - dom,
		AmountToGoal:  math.Max(0, goal-monthToDate),
		Status:        StatusOnTrack,
	}
	if goal > 0 {
		p.ProgressPercent = int(math.Round(monthToDate / goal * 100))
	}
	if p.DaysRemaining > 0 {
		p.RequiredDailyPace = p.AmountToGoal / float64(p.DaysRemaining)
	}
	if dom > 0 {
		p.ActualDailyPace = monthToDate / float64(dom)
	}

	p.ExpectedProgress = float64(dom) / float64(dim) * goal
	if goal > 0 {
		switch {
		case monthToDate >= p.ExpectedProgress*(1+cfg.Tolerance):
			p.Status = StatusAhead
		case monthToDate < p.ExpectedProgress*(1-cfg.Tolerance):
			p.Status = StatusBehind
		}
	}
	return p
}

// Bars returns one progress bar per goal metric, in display order. A missing
// goal (all zeros) renders every bar at 0%.
func Bars(goal model.Goal, toDate model.ToDate) []Bar {
	return []Bar{
		bar("Sales Revenue", toDate.Revenue, goal.SalesRevenue.InexactFloat64()),
		bar("Sales", float64(toDate.SalesCount), float64(goal.SalesCount)),
		bar("Estimates Created", float64(toDate.EstimatesCreated), float64(goal.EstimatesCreated)),
		bar("New Customers", float64(toDate.NewCustomers), float64(goal.NewCustomers)),
	}
}

func bar(label string, actual, target float64) Bar {
	b := Bar{Label: label, Actual: actual, Target: target}
	if target > 0 {
		b.Percent = min(100, int(math.Round(actual/target*100)))
	}
	return b
}
