// Package content picks the supplementary material of a digest: customer
// testimonials under a freshness and display-fairness policy, and the daily
// inspirational quote or joke with anti-repetition against recent digests.
package content

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/nyashahama/retriever-digest/internal/model"
)

// ─── CONSTANTS ────────────────────────────────────────────────────────────────

const (
	DefaultTestimonialLimit  = 2
	DefaultFreshnessWindow   = 30 * 24 * time.Hour
	DefaultInspirationWindow = 14 * 24 * time.Hour
)

// ─── SELECTION ────────────────────────────────────────────────────────────────

// SelectTestimonials picks at most limit testimonials from candidates.
//
// Fill order:
//  1. fresh (dated within freshness of now) and never shown
//  2. older and never shown
//  3. everything, least displayed first, then least recently shown
//
// Candidates keep their source order inside steps 1 and 2. No id is returned
// twice.
func SelectTestimonials(
	candidates []model.Testimonial,
	history []model.DisplayRecord,
	limit int,
	now time.Time,
	freshness time.Duration,
) []model.Testimonial {
	if limit <= 0 || len(candidates) == 0 {
		return []model.Testimonial{}
	}

	byID := make(map[string]model.DisplayRecord, len(history))
	for _, h := range history {
		byID[h.TestimonialID] = h
	}
	cutoff := now.Add(-freshness)

	out := make([]model.Testimonial, 0, limit)
	seen := make(map[string]struct{}, limit)
	take := func(t model.Testimonial) bool {
		if _, dup := seen[t.ID]; dup {
			return false
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
		return len(out) == limit
	}

	var fresh, older []model.Testimonial
	for _, c := range candidates {
		if byID[c.ID].TimesDisplayed > 0 {
			continue
		}
		if !c.Date.Before(cutoff) {
			fresh = append(fresh, c)
		} else {
			older = append(older, c)
		}
	}
	for _, group := range [][]model.Testimonial{fresh, older} {
		for _, c := range group {
			if take(c) {
				return out
			}
		}
	}

	backfill := append([]model.Testimonial(nil), candidates...)
	sort.SliceStable(backfill, func(i, j int) bool {
		a, b := byID[backfill[i].ID], byID[backfill[j].ID]
		if a.TimesDisplayed != b.TimesDisplayed {
			return a.TimesDisplayed < b.TimesDisplayed
		}
		return shownBefore(a.LastShownAt, b.LastShownAt)
	})
	for _, c := range backfill {
		if take(c) {
			break
		}
	}
	return out
}

// shownBefore orders never-shown (nil) first, then by time ascending.
func shownBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return b != nil
	case b == nil:
		return false
	default:
		return a.Before(*b)
	}
}

// ─── SELECTOR ─────────────────────────────────────────────────────────────────

// HistoryStore reads testimonial display bookkeeping.
type HistoryStore interface {
	DisplayRecords(ctx context.Context, ids []string) ([]model.DisplayRecord, error)
}

// Testimonials looks up the display history of candidates and selects from
// them. If the history store fails (for example before its table is
// migrated) the first limit candidates are returned unranked.
func (s *Selector) Testimonials(ctx context.Context, candidates []model.Testimonial) []model.Testimonial {
	limit := s.cfg.TestimonialLimit
	if len(candidates) == 0 || limit <= 0 {
		return []model.Testimonial{}
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	history, err := s.history.DisplayRecords(ctx, ids)
	if err != nil {
		s.log.Warn("content: display history unavailable, using raw candidates", "error", err)
		return firstUnique(candidates, limit)
	}
	return SelectTestimonials(candidates, history, limit, s.now(), s.cfg.FreshnessWindow)
}

func firstUnique(candidates []model.Testimonial, limit int) []model.Testimonial {
	out := make([]model.Testimonial, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// ─── CONSTRUCTION ─────────────────────────────────────────────────────────────

// Config holds the selection windows and limits.
type Config struct {
	TestimonialLimit  int
	FreshnessWindow   time.Duration
	InspirationWindow time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TestimonialLimit:  DefaultTestimonialLimit,
		FreshnessWindow:   DefaultFreshnessWindow,
		InspirationWindow: DefaultInspirationWindow,
	}
}

// Selector applies the selection policies against live collaborators.
type Selector struct {
	history      HistoryStore
	inspirations InspirationStore
	gen          ShortGenerator
	lib          *Library
	rng          Rand
	cfg          Config
	log          *slog.Logger
	now          func() time.Time
}

// Option customises a Selector.
type Option func(*Selector)

// WithRand pins the random source.
func WithRand(r Rand) Option { return func(s *Selector) { s.rng = r } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Selector) { s.now = now } }

// NewSelector wires a Selector. lib must not be nil; gen may be nil, in which
// case inspiration always comes from lib.
func NewSelector(
	history HistoryStore,
	inspirations InspirationStore,
	gen ShortGenerator,
	lib *Library,
	cfg Config,
	log *slog.Logger,
	opts ...Option,
) *Selector {
	s := &Selector{
		history:      history,
		inspirations: inspirations,
		gen:          gen,
		lib:          lib,
		rng:          globalRand{},
		cfg:          cfg,
		log:          log,
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Library returns the local fallback content.
func (s *Selector) Library() *Library { return s.lib }

// Rand returns the selector's random source.
func (s *Selector) Rand() Rand { return s.rng }
