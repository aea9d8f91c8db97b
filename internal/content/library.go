package content

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nyashahama/retriever-digest/internal/model"
)

//go:embed fallback.yaml
var fallbackYAML []byte

// Library is the fixed local content used whenever the generator is
// unavailable.
type Library struct {
	Quotes []struct {
		Text        string `yaml:"text"`
		Attribution string `yaml:"attribution"`
	} `yaml:"quotes"`
	Jokes     []string        `yaml:"jokes"`
	Summaries []model.Summary `yaml:"summaries"`
}

// LoadLibrary parses the embedded fallback content.
func LoadLibrary() (*Library, error) {
	return ParseLibrary(fallbackYAML)
}

// ParseLibrary parses YAML fallback content and checks every list is
// non-empty.
func ParseLibrary(b []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(b, &lib); err != nil {
		return nil, fmt.Errorf("content: parse fallback library: %w", err)
	}
	if len(lib.Quotes) == 0 || len(lib.Jokes) == 0 || len(lib.Summaries) == 0 {
		return nil, fmt.Errorf("content: fallback library needs quotes, jokes and summaries")
	}
	return &lib, nil
}

// Pick returns a uniform-random fallback item of kind.
func (l *Library) Pick(kind model.InspirationKind, rng Rand) model.Inspiration {
	if kind == model.KindJoke {
		return model.Inspiration{
			Kind:   model.KindJoke,
			Text:   l.Jokes[rng.Intn(len(l.Jokes))],
			Source: "fallback",
		}
	}
	q := l.Quotes[rng.Intn(len(l.Quotes))]
	attribution := q.Attribution
	if attribution == "" {
		attribution = UnknownAttribution
	}
	return model.Inspiration{
		Kind:        model.KindQuote,
		Text:        q.Text,
		Attribution: attribution,
		Source:      "fallback",
	}
}

// Summary returns a uniform-random fallback headline and message.
func (l *Library) Summary(rng Rand) model.Summary {
	return l.Summaries[rng.Intn(len(l.Summaries))]
}
