package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/retriever-digest/internal/digest"
	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/pace"
	"github.com/nyashahama/retriever-digest/internal/richctx"
)

func payload(mock bool) digest.Payload {
	return digest.Payload{
		Kind:       model.DigestDaily,
		Date:       "2026-10-15",
		IsMockData: mock,
		Context: richctx.Context{
			Date:         "2026-10-15",
			BiggestOrder: &model.Order{Number: "0999", AccountName: "Rivera Signs", Amount: 20000},
			TopOrders:    []model.Order{{Number: "1001", AccountName: "Acme & Sons", Amount: 12345.6}},
			GoalProgress: &pace.Progress{
				Goal: 100000, Actual: 40000, ProgressPercent: 40,
				DayOfMonth: 15, DaysInMonth: 31, Status: pace.StatusBehind,
			},
			Highlights: []string{"Shipped early"},
		},
		GoalBars:      []pace.Bar{{Label: "Revenue", Actual: 40000, Target: 100000, Percent: 40}},
		PMPerformance: []model.Performance{},
		BDPerformance: []model.Performance{},
		Testimonials:  []model.Testimonial{{ID: "t1", Author: "Pat", Text: "Great <b>work</b>"}},
		Inspiration:   model.Inspiration{Kind: model.KindQuote, Text: "Keep going"},
		Summary:       model.Summary{Headline: "Strong Thursday", Message: "Nice work team"},
		Shoutouts:     []model.Shoutout{{RecipientName: "Sam", Message: "Thanks!"}},
		Birthdays:     []digest.Birthday{{Name: "Lee", Date: "10-16"}},
	}
}

func TestRender_Daily(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	subject, html, err := r.Render(payload(false))
	require.NoError(t, err)

	assert.Equal(t, "Daily Digest 2026-10-15: Strong Thursday", subject)
	assert.NotContains(t, html, "SAMPLE DATA")
	assert.Contains(t, html, "Acme &amp; Sons: $12,346")
	assert.Contains(t, html, "Biggest order: <strong>Rivera Signs</strong>, $20,000")
	assert.Contains(t, html, "40% of $100,000")
	assert.Contains(t, html, "behind pace")
	assert.Contains(t, html, "Great &lt;b&gt;work&lt;/b&gt;")
	assert.Contains(t, html, "Happy birthday, Lee!")
	assert.Contains(t, html, "<strong>Sam:</strong> Thanks!")
	assert.Contains(t, html, "Quote of the day")
}

func TestRender_MockBanner(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	subject, html, err := r.Render(payload(true))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(subject, "[SAMPLE DATA] "), subject)
	assert.Contains(t, html, "SAMPLE DATA: no export was received")
}

func TestRender_WeeklySubject(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	p := payload(false)
	p.Kind = model.DigestWeekly
	subject, _, err := r.Render(p)
	require.NoError(t, err)
	assert.Equal(t, "Weekly Wrap-Up 2026-10-15: Strong Thursday", subject)
}

func TestNewFromStrings_ParseError(t *testing.T) {
	_, err := NewFromStrings("{% if %}", "ok")
	assert.Error(t, err)
}

func TestCurrency(t *testing.T) {
	cases := map[float64]string{
		0:        "$0",
		999.4:    "$999",
		1000:     "$1,000",
		1234567:  "$1,234,567",
		-2500.25: "-$2,500",
	}
	for in, want := range cases {
		assert.Equal(t, want, Currency(in), "Currency(%v)", in)
	}
}
