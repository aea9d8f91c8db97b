package ai

import (
	"fmt"
	"strings"

	"github.com/nyashahama/retriever-digest/internal/model"
	"github.com/nyashahama/retriever-digest/internal/richctx"
)

const quoteSystem = `You pick one short motivational quote for the morning email of a commercial printing company's sales team.
Prefer real, well-attributed quotes about craft, teamwork, persistence or customers.
Respond with exactly one line in this form and nothing else:
"QUOTE TEXT" - ATTRIBUTION`

const jokeSystem = `You write one short, clean, workplace-friendly joke for the morning email of a commercial printing company's sales team.
Puns about printing, paper, ink and sales are welcome. One or two sentences.
Respond with the joke only: no preamble, no quotation marks, no explanation.`

const summarySystemPrompt = `You write the opening of a sales team's daily or weekly digest email for a commercial printing company.
You receive the business figures for the period. Write:
1. headline: at most 8 words, upbeat and specific to the figures.
2. message: 2-3 sentences that celebrate real wins (name accounts or people when given), mention goal pace honestly, and encourage the team. Never invent numbers.
Do not reuse the headlines or account call-outs listed under "recent digests".

Respond ONLY with valid JSON matching this exact schema, no markdown fences, no preamble:
{"headline": "...", "message": "..."}`

func shortContentSystem(kind model.InspirationKind) string {
	if kind == model.KindJoke {
		return jokeSystem
	}
	return quoteSystem
}

func shortContentPrompt(kind model.InspirationKind, avoid []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Give me one %s for today.\n", kind)
	if len(avoid) > 0 {
		sb.WriteString("\nThese were used in the last two weeks. Do not repeat them or anything close:\n")
		for _, a := range avoid {
			fmt.Fprintf(&sb, "- %s\n", a)
		}
	}
	return sb.String()
}

// summaryPrompt serialises the context into a compact prompt string.
func summaryPrompt(c richctx.Context) string {
	var sb strings.Builder
	period := "day"
	if c.IsWeekly {
		period = "week"
	}
	fmt.Fprintf(&sb, "Digest for the %s ending %s.\n\n", period, c.Date)
	fmt.Fprintf(&sb, "revenue: $%.2f, sales: %d, estimates: %d, new customers: %d\n",
		c.Today.Revenue, c.Today.SalesCount, c.Today.EstimatesCreated, c.Today.NewCustomers)
	fmt.Fprintf(&sb, "month to date revenue: $%.2f, year to date revenue: $%.2f\n",
		c.MonthToDate.Revenue, c.YearToDate.Revenue)

	if c.Comparison != nil {
		fmt.Fprintf(&sb, "change vs %s: revenue %+d%%, sales %+d%%, estimates %+d%%\n",
			c.Comparison.PreviousDate, c.Comparison.Changes.Revenue,
			c.Comparison.Changes.SalesCount, c.Comparison.Changes.EstimatesCreated)
	} else {
		sb.WriteString("no prior period to compare against\n")
	}

	if g := c.GoalProgress; g != nil {
		fmt.Fprintf(&sb, "monthly goal: $%.2f, progress %d%%, pace %s, needs $%.2f/day over %d days\n",
			g.Goal, g.ProgressPercent, g.Status, g.RequiredDailyPace, g.DaysRemaining)
	}

	if o := c.BiggestOrder; o != nil {
		fmt.Fprintf(&sb, "biggest order: %s, $%.2f\n", o.AccountName, o.Amount)
	}
	if p := c.TopPerformers.PM; p != nil {
		fmt.Fprintf(&sb, "top project manager: %s ($%.2f, %d orders)\n", p.Name, p.Revenue, p.OrdersCompleted)
	}
	if p := c.TopPerformers.BD; p != nil {
		fmt.Fprintf(&sb, "top business developer: %s ($%.2f, %d orders)\n", p.Name, p.Revenue, p.OrdersCompleted)
	}
	for _, h := range c.Highlights {
		fmt.Fprintf(&sb, "highlight: %s\n", h)
	}

	if len(c.RecentDigests) > 0 {
		sb.WriteString("\nrecent digests:\n")
		for _, d := range c.RecentDigests {
			fmt.Fprintf(&sb, "- %s: %q accounts: %s\n", d.Date, d.Headline, strings.Join(d.AccountNames, ", "))
		}
	}
	return sb.String()
}
