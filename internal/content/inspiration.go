package content

import (
	"context"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/nyashahama/retriever-digest/internal/model"
)

// UnknownAttribution is used when a quote carries no parsable author.
const UnknownAttribution = "Unknown"

// ShortGenerator produces one short item of the given kind, avoiding the
// listed recent items. Implementations return the raw text; parsing and
// fallback happen here.
type ShortGenerator interface {
	GenerateShortContent(ctx context.Context, kind model.InspirationKind, avoid []string) (string, error)
}

// InspirationStore caches the chosen item onto the day's export record.
type InspirationStore interface {
	SetInspiration(ctx context.Context, day time.Time, insp model.Inspiration) error
}

// Rand is the random source used for category and fallback picks.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.IntN(n) }

// ─── SELECTION ────────────────────────────────────────────────────────────────

// SelectInspiration picks a quote or a joke with equal probability and asks
// gen for one, passing recent so it can avoid repeats. A generator error, an
// empty answer, or an unparsable quote falls back to a uniform pick from lib.
func SelectInspiration(
	ctx context.Context,
	gen ShortGenerator,
	lib *Library,
	recent []string,
	rng Rand,
) model.Inspiration {
	kind := model.KindQuote
	if rng.Intn(2) == 1 {
		kind = model.KindJoke
	}
	if gen == nil {
		return lib.Pick(kind, rng)
	}

	raw, err := gen.GenerateShortContent(ctx, kind, recent)
	if err != nil {
		return lib.Pick(kind, rng)
	}
	insp, ok := parse(kind, raw)
	if !ok {
		return lib.Pick(kind, rng)
	}
	insp.Source = "ai"
	return insp
}

func parse(kind model.InspirationKind, raw string) (model.Inspiration, bool) {
	if kind == model.KindQuote {
		text, attribution, ok := ParseQuote(raw)
		return model.Inspiration{Kind: kind, Text: text, Attribution: attribution}, ok
	}
	text := stripQuotes(raw)
	return model.Inspiration{Kind: kind, Text: text}, text != ""
}

var (
	quotedWithAuthor = regexp.MustCompile(`^["“](.+?)["”]\s*[-–—]+\s*(.*)$`)
	bareWithAuthor   = regexp.MustCompile(`^(.*\S)\s+[-–—]+\s*(.+)$`)
)

// ParseQuote splits `"TEXT" - ATTRIBUTION` into its parts. The separator may
// be a hyphen, en dash or em dash. Wrapping quotation marks are stripped from
// the text; a missing attribution becomes "Unknown". ok is false when no text
// remains.
func ParseQuote(raw string) (text, attribution string, ok bool) {
	raw = strings.TrimSpace(raw)
	text = raw
	if m := quotedWithAuthor.FindStringSubmatch(raw); m != nil {
		text, attribution = m[1], m[2]
	} else if m := bareWithAuthor.FindStringSubmatch(raw); m != nil {
		text, attribution = m[1], m[2]
	}

	text = stripQuotes(text)
	attribution = strings.TrimSpace(attribution)
	if attribution == "" {
		attribution = UnknownAttribution
	}
	return text, attribution, text != ""
}

func stripQuotes(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\"'“”‘’"))
}

// ─── DAY CACHE ────────────────────────────────────────────────────────────────

// Inspiration returns the item for day. A record that already carries one is
// reused; otherwise a new item is selected and written back to the store. A
// nil day (mock data) selects without writing back. Write-back failures are
// logged, not returned.
func (s *Selector) Inspiration(ctx context.Context, day *model.ExportRecord, recent []string) model.Inspiration {
	if day != nil && day.AIInspiration != nil && day.AIInspiration.Text != "" {
		return *day.AIInspiration
	}

	insp := SelectInspiration(ctx, s.gen, s.lib, recent, s.rng)
	if day == nil || s.inspirations == nil {
		return insp
	}
	if err := s.inspirations.SetInspiration(ctx, day.ExportDate, insp); err != nil {
		s.log.Warn("content: caching inspiration failed", "date", day.Date(), "error", err)
		return insp
	}
	day.AIInspiration = &insp
	return insp
}

// RecentInspiration lists the cached items of records dated within window
// before now, for the generator's avoid list.
func RecentInspiration(records []model.ExportRecord, now time.Time, window time.Duration) []string {
	cutoff := now.Add(-window)
	out := []string{}
	for _, r := range records {
		if r.AIInspiration == nil || r.AIInspiration.Text == "" || r.ExportDate.Before(cutoff) {
			continue
		}
		out = append(out, r.AIInspiration.Text)
	}
	return out
}

// InspirationWindow returns the configured recency window.
func (s *Selector) InspirationWindow() time.Duration { return s.cfg.InspirationWindow }
