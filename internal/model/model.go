// Package model holds the typed domain records shared by the digest engine:
// export snapshots, goals, recipients, shoutouts and supplementary content.
//
// Dependency rule: model imports no other internal package. Every other
// package may import it.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── EXPORT RECORDS ───────────────────────────────────────────────────────────

// Metrics is the flat metric block of one daily export. Daily fields cover
// the export day only; the month/year-to-date fields are cumulative as of that
// day and must never be summed across records.
type Metrics struct {
	DailyRevenue          float64 `json:"dailyRevenue"`
	DailySalesCount       int     `json:"dailySalesCount" validate:"gte=0"`
	DailyEstimatesCreated int     `json:"dailyEstimatesCreated" validate:"gte=0"`
	DailyNewCustomers     int     `json:"dailyNewCustomers" validate:"gte=0"`

	MonthToDateRevenue          float64 `json:"monthToDateRevenue"`
	MonthToDateSalesCount       int     `json:"monthToDateSalesCount" validate:"gte=0"`
	MonthToDateEstimatesCreated int     `json:"monthToDateEstimatesCreated" validate:"gte=0"`
	MonthToDateNewCustomers     int     `json:"monthToDateNewCustomers" validate:"gte=0"`

	YearToDateRevenue          float64 `json:"yearToDateRevenue"`
	YearToDateSalesCount       int     `json:"yearToDateSalesCount" validate:"gte=0"`
	YearToDateEstimatesCreated int     `json:"yearToDateEstimatesCreated" validate:"gte=0"`
	YearToDateNewCustomers     int     `json:"yearToDateNewCustomers" validate:"gte=0"`
}

// ToDate is one cumulative snapshot (month-to-date or year-to-date).
type ToDate struct {
	Revenue          float64 `json:"revenue"`
	SalesCount       int     `json:"salesCount"`
	EstimatesCreated int     `json:"estimatesCreated"`
	NewCustomers     int     `json:"newCustomers"`
}

// MonthToDate returns the month-to-date counterparts as a ToDate.
func (m Metrics) MonthToDate() ToDate {
	return ToDate{
		Revenue:          m.MonthToDateRevenue,
		SalesCount:       m.MonthToDateSalesCount,
		EstimatesCreated: m.MonthToDateEstimatesCreated,
		NewCustomers:     m.MonthToDateNewCustomers,
	}
}

// YearToDate returns the year-to-date counterparts as a ToDate.
func (m Metrics) YearToDate() ToDate {
	return ToDate{
		Revenue:          m.YearToDateRevenue,
		SalesCount:       m.YearToDateSalesCount,
		EstimatesCreated: m.YearToDateEstimatesCreated,
		NewCustomers:     m.YearToDateNewCustomers,
	}
}

// WithToDate returns a copy of m with the cumulative fields replaced.
func (m Metrics) WithToDate(mtd, ytd ToDate) Metrics {
	m.MonthToDateRevenue = mtd.Revenue
	m.MonthToDateSalesCount = mtd.SalesCount
	m.MonthToDateEstimatesCreated = mtd.EstimatesCreated
	m.MonthToDateNewCustomers = mtd.NewCustomers
	m.YearToDateRevenue = ytd.Revenue
	m.YearToDateSalesCount = ytd.SalesCount
	m.YearToDateEstimatesCreated = ytd.EstimatesCreated
	m.YearToDateNewCustomers = ytd.NewCustomers
	return m
}

// Performance is one performer's line in the PM or BD table. Names are unique
// within a single record's list.
type Performance struct {
	Name            string  `json:"name" validate:"required"`
	OrdersCompleted int     `json:"ordersCompleted" validate:"gte=0"`
	Revenue         float64 `json:"revenue"`
}

// Role selects the PM or BD performance list of a record.
type Role string

const (
	RolePM Role = "pm"
	RoleBD Role = "bd"
)

// Highlight is one free-text highlight line from the export.
type Highlight struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description"`
}

// Insight is a pre-computed insight block supplied by the export.
type Insight struct {
	Type    string   `json:"type"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Items   []string `json:"items,omitempty"`
}

// Order is a completed invoice or created estimate.
type Order struct {
	Number      string  `json:"number"`
	AccountName string  `json:"accountName"`
	TakenBy     string  `json:"takenBy,omitempty"`
	SalesRep    string  `json:"salesRep,omitempty"`
	Amount      float64 `json:"amount"`
	WebOrderID  string  `json:"webOrderId,omitempty"`
	Description string  `json:"description,omitempty"`
}

// ExportRecord is the validated snapshot of one business day. At most one
// exists per calendar day; "latest" means the greatest ExportDate.
type ExportRecord struct {
	ExportDate time.Time `json:"exportDate"`
	Metrics    Metrics   `json:"metrics"`

	Highlights    []Highlight   `json:"highlights"`
	BDPerformance []Performance `json:"bdPerformance"`
	PMPerformance []Performance `json:"pmPerformance"`

	AIInsights           []Insight    `json:"aiInsights,omitempty"`
	NewCustomerEstimates []Order      `json:"newCustomerEstimates,omitempty"`
	AIInspiration        *Inspiration `json:"aiInspiration,omitempty"`

	// Extras passed through from the export job.
	Invoices     []Order      `json:"invoices,omitempty"`
	TopEstimates []Order      `json:"topEstimates,omitempty"`
	BiggestOrder *Order       `json:"biggestOrder,omitempty"`
	TopPM        *Performance `json:"topPM,omitempty"`
	TopBD        *Performance `json:"topBD,omitempty"`

	ExportSource string    `json:"exportSource,omitempty"`
	ReceivedAt   time.Time `json:"receivedAt"`
}

// Date returns the record's calendar day as YYYY-MM-DD.
func (r ExportRecord) Date() string {
	if r.ExportDate.IsZero() {
		return ""
	}
	return r.ExportDate.Format("2006-01-02")
}

// Performers returns the list for the given role.
func (r ExportRecord) Performers(role Role) []Performance {
	if role == RoleBD {
		return r.BDPerformance
	}
	return r.PMPerformance
}

// ─── GOALS ────────────────────────────────────────────────────────────────────

// PeriodType is the goal period. Exactly one goal row exists per period.
type PeriodType string

const (
	PeriodMonthly PeriodType = "MONTHLY"
	PeriodAnnual  PeriodType = "ANNUAL"
)

// Valid reports whether p is a known period type.
func (p PeriodType) Valid() bool {
	return p == PeriodMonthly || p == PeriodAnnual
}

// Goal is the numeric target for one period. A missing row is equivalent to
// the zero Goal.
type Goal struct {
	PeriodType       PeriodType      `json:"periodType"`
	SalesRevenue     decimal.Decimal `json:"salesRevenue"`
	SalesCount       int             `json:"salesCount"`
	EstimatesCreated int             `json:"estimatesCreated"`
	NewCustomers     int             `json:"newCustomers"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// ─── RECIPIENTS & SHOUTOUTS ───────────────────────────────────────────────────

// Recipient is a digest subscriber.
type Recipient struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Active         bool      `json:"active"`
	Birthday       *string   `json:"birthday,omitempty"` // MM-DD
	OptOutDigest   bool      `json:"optOutDigest"`
	OptOutBirthday bool      `json:"optOutBirthday"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ReceivesDigest reports whether digest sends should include this recipient.
func (r Recipient) ReceivesDigest() bool {
	return r.Active && !r.OptOutDigest
}

// Shoutout is a pending team message owned by a recipient.
type Shoutout struct {
	ID            uuid.UUID `json:"id"`
	RecipientID   uuid.UUID `json:"recipientId"`
	RecipientName string    `json:"recipientName"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ─── SUPPLEMENTARY CONTENT ────────────────────────────────────────────────────

// Testimonial is a customer review fetched from the external source.
type Testimonial struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	Rating int       `json:"rating"`
	Source string    `json:"source,omitempty"`
	Date   time.Time `json:"date"`
}

// DisplayRecord is the fairness bookkeeping for one testimonial.
type DisplayRecord struct {
	TestimonialID  string      `json:"testimonialId"`
	Testimonial    Testimonial `json:"testimonial"`
	TimesDisplayed int         `json:"numberOfTimesDisplayed"`
	LastShownAt    *time.Time  `json:"lastShownAt,omitempty"`
}

// InspirationKind is the category of short inspirational content.
type InspirationKind string

const (
	KindQuote InspirationKind = "quote"
	KindJoke  InspirationKind = "joke"
)

// Inspiration is the quote or joke chosen for a day.
type Inspiration struct {
	Kind        InspirationKind `json:"kind"`
	Text        string          `json:"text"`
	Attribution string          `json:"attribution,omitempty"`
	Source      string          `json:"source,omitempty"` // "ai" or "fallback"
}

// Summary is the motivational headline and message of a digest.
type Summary struct {
	Headline string `json:"headline"`
	Message  string `json:"message"`
}

// RecentDigest is one previously sent digest, used as anti-repetition input.
type RecentDigest struct {
	Date         string   `json:"date"`
	Headline     string   `json:"headline"`
	AccountNames []string `json:"accountNames"`
}

// DigestRun is the record of one completed batch send.
type DigestRun struct {
	ID           uuid.UUID  `json:"id"`
	Kind         DigestKind `json:"kind"`
	DigestDate   time.Time  `json:"digestDate"`
	Headline     string     `json:"headline"`
	AccountNames []string   `json:"accountNames"`
	Sent         int        `json:"sent"`
	Failed       int        `json:"failed"`
	IsMock       bool       `json:"isMock"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// DigestKind selects the daily or weekly send.
type DigestKind string

const (
	DigestDaily  DigestKind = "daily"
	DigestWeekly DigestKind = "weekly"
)

// Valid reports whether k is a known digest kind.
func (k DigestKind) Valid() bool {
	return k == DigestDaily || k == DigestWeekly
}
