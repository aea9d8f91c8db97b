// Package render turns a digest payload into an email subject and HTML body
// using liquid templates.
package render

import (
	"embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/osteele/liquid"
	"github.com/shopspring/decimal"

	"github.com/nyashahama/retriever-digest/internal/digest"
)

//go:embed templates/*.liquid
var templateFS embed.FS

// Renderer holds the parsed subject and body templates. It is safe for
// concurrent use.
type Renderer struct {
	engine  *liquid.Engine
	subject *liquid.Template
	body    *liquid.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	subject, err := templateFS.ReadFile("templates/subject.liquid")
	if err != nil {
		return nil, fmt.Errorf("render: read subject template: %w", err)
	}
	body, err := templateFS.ReadFile("templates/digest.html.liquid")
	if err != nil {
		return nil, fmt.Errorf("render: read body template: %w", err)
	}
	return NewFromStrings(string(subject), string(body))
}

// NewFromStrings parses caller-supplied templates, mainly for previews of
// template edits.
func NewFromStrings(subject, body string) (*Renderer, error) {
	engine := liquid.NewEngine()
	registerFilters(engine)

	r := &Renderer{engine: engine}
	var err error
	if r.subject, err = engine.ParseString(subject); err != nil {
		return nil, fmt.Errorf("render: parse subject: %w", err)
	}
	if r.body, err = engine.ParseString(body); err != nil {
		return nil, fmt.Errorf("render: parse body: %w", err)
	}
	return r, nil
}

// Render produces the subject line and HTML body for p.
func (r *Renderer) Render(p digest.Payload) (subject, html string, err error) {
	bindings, err := toBindings(p)
	if err != nil {
		return "", "", err
	}
	subject, serr := r.subject.RenderString(bindings)
	if serr != nil {
		return "", "", fmt.Errorf("render: subject: %w", serr)
	}
	html, herr := r.body.RenderString(bindings)
	if herr != nil {
		return "", "", fmt.Errorf("render: body: %w", herr)
	}
	return strings.TrimSpace(subject), html, nil
}

// toBindings flattens the payload through its JSON form so templates see the
// same camelCase keys as API clients.
func toBindings(p digest.Payload) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("render: encode payload: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("render: decode payload: %w", err)
	}
	return m, nil
}

func registerFilters(e *liquid.Engine) {
	e.RegisterFilter("currency", func(v any) string {
		return Currency(toFloat(v))
	})
	e.RegisterFilter("number", func(v any) string {
		return Number(toFloat(v))
	})
	e.RegisterFilter("signed", func(v any) string {
		n := int(math.Round(toFloat(v)))
		if n > 0 {
			return fmt.Sprintf("+%d", n)
		}
		return fmt.Sprintf("%d", n)
	})
	e.RegisterFilter("trend", func(v any) string {
		switch f := toFloat(v); {
		case f > 0:
			return "up"
		case f < 0:
			return "down"
		}
		return "flat"
	})
	e.RegisterFilter("pace_label", func(v any) string {
		switch fmt.Sprint(v) {
		case "ahead":
			return "ahead of pace"
		case "behind":
			return "behind pace"
		}
		return "on track"
	})
}

// Currency formats v as whole dollars with thousands separators.
func Currency(v float64) string {
	n := Number(v)
	if strings.HasPrefix(n, "-") {
		return "-$" + n[1:]
	}
	return "$" + n
}

// Number rounds v to a whole number and groups thousands.
func Number(v float64) string {
	d := decimal.NewFromFloat(v).Round(0)
	s := d.Abs().String()
	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return 0
		}
		return d.InexactFloat64()
	}
	return 0
}
