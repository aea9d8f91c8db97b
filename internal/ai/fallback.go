package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/richctx"
)

// ErrNoProvider is returned by a fallback generator with nothing configured.
var ErrNoProvider = errors.New("ai: no provider configured")

// fallbackGenerator wraps two Generator implementations. It calls the primary
// first; if that returns an error it logs the failure and tries the
// secondary. Chains of three are built by nesting.
type fallbackGenerator struct {
	primary   Generator
	secondary Generator
	logger    *slog.Logger
}

// NewFallbackGenerator returns a Generator that calls primary and, on
// failure, falls back to secondary. Either argument may be nil: if primary is
// nil it goes straight to secondary; if secondary is nil and primary fails,
// the primary error is returned directly.
func NewFallbackGenerator(primary, secondary Generator, logger *slog.Logger) Generator {
	return &fallbackGenerator{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (f *fallbackGenerator) GenerateShortContent(ctx context.Context, kind model.InspirationKind, avoid []string) (string, error) {
	if f.primary != nil {
		text, err := f.primary.GenerateShortContent(ctx, kind, avoid)
		if err == nil {
			return text, nil
		}
		f.logger.Warn("ai: primary generator failed, trying secondary",
			"op", "short_content",
			"kind", kind,
			"error", err,
		)
		if f.secondary == nil {
			return "", fmt.Errorf("ai: primary failed and no secondary configured: %w", err)
		}
	}
	if f.secondary == nil {
		return "", ErrNoProvider
	}
	return f.secondary.GenerateShortContent(ctx, kind, avoid)
}

func (f *fallbackGenerator) GenerateMotivationalSummary(ctx context.Context, c richctx.Context) (model.Summary, error) {
	if f.primary != nil {
		s, err := f.primary.GenerateMotivationalSummary(ctx, c)
		if err == nil {
			return s, nil
		}
		f.logger.Warn("ai: primary generator failed, trying secondary",
			"op", "summary",
			"date", c.Date,
			"error", err,
		)
		if f.secondary == nil {
			return model.Summary{}, fmt.Errorf("ai: primary failed and no secondary configured: %w", err)
		}
	}
	if f.secondary == nil {
		return model.Summary{}, ErrNoProvider
	}
	return f.secondary.GenerateMotivationalSummary(ctx, c)
}
