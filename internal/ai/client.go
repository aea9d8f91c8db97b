// Package ai defines the content-generator contract used by the digest and
// provides Anthropic, DeepSeek and AWS Bedrock backed implementations.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/richctx"
)

// Generator is the interface the digest uses for AI-written copy.
// Tests inject a stub that returns canned responses.
type Generator interface {
	// GenerateShortContent returns one quote or joke as raw text. Quotes are
	// requested in the form `"TEXT" - ATTRIBUTION`; the caller parses them.
	// avoid lists items used recently.
	GenerateShortContent(ctx context.Context, kind model.InspirationKind, avoid []string) (string, error)

	// GenerateMotivationalSummary returns a headline and short message for
	// the digest described by c.
	//
	// Implementations must be safe to call concurrently. A non-nil error
	// means the call failed; the digest falls back to local copy.
	GenerateMotivationalSummary(ctx context.Context, c richctx.Context) (model.Summary, error)
}

// completer is one provider's transport: system + user prompt in, text out.
type completer interface {
	complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// generator adapts a completer to Generator. Prompt building and response
// parsing are shared by every provider.
type generator struct {
	name string
	c    completer
}

func (g *generator) GenerateShortContent(ctx context.Context, kind model.InspirationKind, avoid []string) (string, error) {
	raw, err := g.c.complete(ctx, shortContentSystem(kind), shortContentPrompt(kind, avoid), 200)
	if err != nil {
		return "", err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%s: empty %s", g.name, kind)
	}
	return raw, nil
}

func (g *generator) GenerateMotivationalSummary(ctx context.Context, c richctx.Context) (model.Summary, error) {
	raw, err := g.c.complete(ctx, summarySystemPrompt, summaryPrompt(c), 600)
	if err != nil {
		return model.Summary{}, err
	}
	return parseSummary(g.name, raw)
}

// ─── SUMMARY JSON ─────────────────────────────────────────────────────────────
// The model is prompted to respond in this exact JSON shape so we can parse
// it without regex heuristics.

type summaryJSON struct {
	Headline string `json:"headline"`
	Message  string `json:"message"`
}

func parseSummary(provider, raw string) (model.Summary, error) {
	raw = stripFences(raw)

	var parsed summaryJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return model.Summary{}, fmt.Errorf("%s: parse response JSON: %w (raw: %.200s)", provider, err, raw)
	}
	s := model.Summary{
		Headline: strings.TrimSpace(parsed.Headline),
		Message:  strings.TrimSpace(parsed.Message),
	}
	if s.Headline == "" || s.Message == "" {
		return model.Summary{}, fmt.Errorf("%s: summary missing headline or message", provider)
	}
	return s, nil
}

// stripFences removes markdown code fences the model may add.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
