// Package digest assembles the daily and weekly digest payloads and sends
// them to a batch of recipients.
//
// Assembly loads its inputs concurrently, falls back to a labelled sample
// dataset when no export exists for the period, and then runs one code path
// for real and sample data alike. Nothing is purged here: the caller commits
// the emitted shoutouts and testimonials once the send has reached someone.
package digest

import (
	"github.com/google/uuid"

	"github.com/nyashahama/retriever-digest/internal/metrics"
	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/pace"
	"github.com/nyashahama/retriever-digest/internal/richctx"
)

// Birthday is one birthday mention.
type Birthday struct {
	Name string `json:"name"`
	Date string `json:"date"` // MM-DD
}

// Payload is the fully populated digest handed to the renderer. Every list
// is non-nil so real and sample payloads have identical keys.
type Payload struct {
	Kind       model.DigestKind `json:"kind"`
	Date       string           `json:"date"`
	IsMockData bool             `json:"isMockData"`

	Context  richctx.Context `json:"context"`
	Week     *metrics.Week   `json:"week,omitempty"` // weekly only
	GoalBars []pace.Bar      `json:"goalBars"`

	PMPerformance []model.Performance `json:"pmPerformance"`
	BDPerformance []model.Performance `json:"bdPerformance"`

	Testimonials []model.Testimonial `json:"testimonials"`
	Inspiration  model.Inspiration   `json:"inspiration"`
	Summary      model.Summary       `json:"summary"`
	Shoutouts    []model.Shoutout    `json:"shoutouts"`
	Birthdays    []Birthday          `json:"birthdays"`
}

// AccountNames returns the customer names of the notable orders, used to
// steer the next summary away from repeating the same accounts.
func (p Payload) AccountNames() []string {
	out := []string{}
	seen := map[string]bool{}
	for _, o := range p.Context.TopOrders {
		if o.AccountName == "" || seen[o.AccountName] {
			continue
		}
		seen[o.AccountName] = true
		out = append(out, o.AccountName)
	}
	return out
}

// Result is a built digest plus what the caller must commit after a
// successful send.
type Result struct {
	Payload Payload

	// ShoutoutIDs are exactly the shoutouts carried in Payload.
	ShoutoutIDs []uuid.UUID
	// Testimonials are the ones selected, for display-history write-back.
	Testimonials []model.Testimonial
}
