package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nyashahama/retriever-digest/internal/content"
	"github.com/nyashahama/retriever-digest/internal/dates"
	"github.com/nyashahama/retriever-digest/internal/metrics"
	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/pace"
	"github.com/nyashahama/retriever-digest/internal/richctx"
	"github.com/nyashahama/retriever-digest/internal/testimonials"
)

// ErrRunInProgress is returned when another run of the same kind holds the
// run lock.
var ErrRunInProgress = errors.New("digest: a run of this kind is already in progress")

// minHistory is the shortest export history loaded; it must reach back past
// a long weekend to find the previous business day.
const minHistory = 7 * 24 * time.Hour

// ErrUnknownKind is returned for a kind other than daily or weekly.
var ErrUnknownKind = errors.New("digest: unknown digest kind")

// Loader is the read side the assembler needs. *store.Store satisfies it.
type Loader interface {
	// LatestExport returns nil, nil when no export exists.
	LatestExport(ctx context.Context) (*model.ExportRecord, error)
	ExportsInRange(ctx context.Context, start, end time.Time) ([]model.ExportRecord, error)
	// Goal returns nil, nil when no goal is set.
	Goal(ctx context.Context, period model.PeriodType) (*model.Goal, error)
	PendingShoutouts(ctx context.Context) ([]model.Shoutout, error)
	BirthdayRecipients(ctx context.Context, days []string) ([]model.Recipient, error)
	RecentDigests(ctx context.Context, since time.Time) ([]model.RecentDigest, error)
}

// SummaryGenerator writes the motivational headline and message.
// ai.Generator satisfies it.
type SummaryGenerator interface {
	GenerateMotivationalSummary(ctx context.Context, c richctx.Context) (model.Summary, error)
}

// Config tunes assembly.
type Config struct {
	// CandidatePool is how many testimonials are fetched for selection.
	CandidatePool int
	RecentWindow  time.Duration
	Pace          pace.Config
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CandidatePool: 20,
		RecentWindow:  richctx.DefaultRecentWindow,
		Pace:          pace.DefaultConfig(),
	}
}

// Assembler builds digest payloads.
type Assembler struct {
	loader   Loader
	source   testimonials.Source
	selector *content.Selector
	summary  SummaryGenerator
	cfg      Config
	log      *slog.Logger
}

// NewAssembler wires an Assembler. summary may be nil, in which case the
// local fallback summaries are always used.
func NewAssembler(
	loader Loader,
	source testimonials.Source,
	selector *content.Selector,
	summary SummaryGenerator,
	cfg Config,
	log *slog.Logger,
) *Assembler {
	if cfg.CandidatePool <= 0 {
		cfg.CandidatePool = DefaultConfig().CandidatePool
	}
	return &Assembler{
		loader:   loader,
		source:   source,
		selector: selector,
		summary:  summary,
		cfg:      cfg,
		log:      log,
	}
}

// inputs is the joined result of the load fan-out.
type inputs struct {
	latest     *model.ExportRecord
	thisWeek   []model.ExportRecord
	lastWeek   []model.ExportRecord
	history    []model.ExportRecord
	goal       *model.Goal
	shoutouts  []model.Shoutout
	birthdays  []model.Recipient
	candidates []model.Testimonial
	recent     []model.RecentDigest
}

// Build assembles the digest of kind for the reference time ref.
func (a *Assembler) Build(ctx context.Context, kind model.DigestKind, ref time.Time) (Result, error) {
	if !kind.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	log := a.log.With("kind", kind, "ref", ref.Format(dates.DayLayout))

	in, err := a.load(ctx, kind, ref, log)
	if err != nil {
		return Result{}, err
	}

	var (
		current  model.ExportRecord
		previous *model.ExportRecord
		day      *model.ExportRecord // real record the inspiration is cached on
		week     *metrics.Week
		isMock   bool
	)

	switch kind {
	case model.DigestDaily:
		if in.latest == nil {
			isMock = true
			var prev model.ExportRecord
			current, prev = MockDaily(ref)
			previous = &prev
		} else {
			current = *in.latest
			day = in.latest
			previous = previousRecord(in.history, current.ExportDate)
		}

	case model.DigestWeekly:
		thisWeek, lastWeek := in.thisWeek, in.lastWeek
		if len(thisWeek) == 0 {
			isMock = true
			thisWeek, lastWeek = MockWeek(ref)
		} else {
			latest := metrics.Chronological(thisWeek)
			day = &latest[len(latest)-1]
		}
		w := metrics.Rollup(thisWeek, lastWeek, dates.WeekBoundaries(ref).End)
		week = &w
		current = w.Record
		previous = w.Previous
	}
	if isMock {
		log.Info("digest: no export data for period, using sample data")
	}

	rc, err := richctx.Build(richctx.Input{
		Current:      &current,
		Previous:     previous,
		Goal:         in.goal,
		IsWeekly:     kind == model.DigestWeekly,
		Recent:       in.recent,
		Pace:         a.cfg.Pace,
		RecentWindow: a.cfg.RecentWindow,
	})
	if err != nil {
		return Result{}, fmt.Errorf("digest: build context: %w", err)
	}

	avoid := content.RecentInspiration(in.history, ref, a.selector.InspirationWindow())
	insp := a.selector.Inspiration(ctx, day, avoid)
	chosen := a.selector.Testimonials(ctx, in.candidates)

	p := Payload{
		Kind:          kind,
		Date:          rc.Date,
		IsMockData:    isMock,
		Context:       rc,
		Week:          week,
		GoalBars:      pace.Bars(goalOrZero(in.goal), current.Metrics.MonthToDate()),
		PMPerformance: nonNil(current.PMPerformance),
		BDPerformance: nonNil(current.BDPerformance),
		Testimonials:  nonNil(chosen),
		Inspiration:   insp,
		Summary:       a.motivationalSummary(ctx, rc, log),
		Shoutouts:     nonNil(in.shoutouts),
		Birthdays:     birthdays(in.birthdays),
	}

	ids := make([]uuid.UUID, len(p.Shoutouts))
	for i, s := range p.Shoutouts {
		ids[i] = s.ID
	}

	log.Info("digest: built",
		"date", p.Date,
		"is_mock", isMock,
		"shoutouts", len(p.Shoutouts),
		"testimonials", len(p.Testimonials),
		"birthdays", len(p.Birthdays),
	)
	return Result{Payload: p, ShoutoutIDs: ids, Testimonials: p.Testimonials}, nil
}

// load fans out every independent read and joins them. Export, goal and
// shoutout reads are required; the rest degrade to empty with a warning.
func (a *Assembler) load(ctx context.Context, kind model.DigestKind, ref time.Time, log *slog.Logger) (inputs, error) {
	var in inputs
	g, gctx := errgroup.WithContext(ctx)

	switch kind {
	case model.DigestDaily:
		g.Go(func() (err error) {
			in.latest, err = a.loader.LatestExport(gctx)
			return err
		})
		g.Go(func() (err error) {
			in.shoutouts, err = a.loader.PendingShoutouts(gctx)
			if err != nil {
				return fmt.Errorf("digest: load shoutouts: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			bs, err := a.loader.BirthdayRecipients(gctx, dates.BirthdayTargetDates(ref))
			if err != nil {
				log.Warn("digest: loading birthdays failed", "error", err)
				return nil
			}
			in.birthdays = bs
			return nil
		})

	case model.DigestWeekly:
		this, last := dates.WeekBoundaries(ref), dates.PriorWeek(ref)
		g.Go(func() (err error) {
			in.thisWeek, err = a.loader.ExportsInRange(gctx, this.Start, this.End)
			return err
		})
		g.Go(func() (err error) {
			in.lastWeek, err = a.loader.ExportsInRange(gctx, last.Start, last.End)
			return err
		})
	}

	g.Go(func() (err error) {
		in.goal, err = a.loader.Goal(gctx, model.PeriodMonthly)
		return err
	})
	g.Go(func() error {
		in.candidates = a.source.FetchCandidates(gctx, a.cfg.CandidatePool)
		return nil
	})
	g.Go(func() error {
		window := max(a.selector.InspirationWindow(), minHistory)
		hist, err := a.loader.ExportsInRange(gctx, ref.Add(-window), ref)
		if err != nil {
			log.Warn("digest: loading export history failed", "error", err)
			return nil
		}
		in.history = hist
		return nil
	})
	g.Go(func() error {
		recent, err := a.loader.RecentDigests(gctx, ref.Add(-a.cfg.RecentWindow))
		if err != nil {
			log.Warn("digest: loading recent digests failed", "error", err)
			return nil
		}
		in.recent = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return inputs{}, err
	}
	return in, nil
}

// motivationalSummary asks the generator and falls back to the local library
// on any failure.
func (a *Assembler) motivationalSummary(ctx context.Context, rc richctx.Context, log *slog.Logger) model.Summary {
	if a.summary != nil {
		s, err := a.summary.GenerateMotivationalSummary(ctx, rc)
		switch {
		case err != nil:
			log.Warn("digest: summary generation failed, using fallback", "error", err)
		case s.Headline == "" || s.Message == "":
			log.Warn("digest: summary generation returned an empty summary, using fallback")
		default:
			return s
		}
	}
	return a.selector.Library().Summary(a.selector.Rand())
}

// previousRecord returns the latest record in history dated before day.
func previousRecord(history []model.ExportRecord, day time.Time) *model.ExportRecord {
	var prev *model.ExportRecord
	for i := range history {
		r := history[i]
		if !r.ExportDate.Before(day) {
			continue
		}
		if prev == nil || r.ExportDate.After(prev.ExportDate) {
			prev = &history[i]
		}
	}
	return prev
}

// goalOrZero keeps the goal bars present when no goal is set.
func goalOrZero(g *model.Goal) model.Goal {
	if g == nil {
		return model.Goal{PeriodType: model.PeriodMonthly}
	}
	return *g
}

func birthdays(rs []model.Recipient) []Birthday {
	out := []Birthday{}
	for _, r := range rs {
		if r.Birthday == nil {
			continue
		}
		out = append(out, Birthday{Name: r.Name, Date: *r.Birthday})
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
