package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is shared by every Validate method in this package. validator
// caches struct metadata, so one instance per process is the intended use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrMissingExportDate is returned when a payload carries neither export_date
// nor date.
var ErrMissingExportDate = errors.New("model: export payload has no date")

// ExportPayload is the raw body posted by the export job. It is decoded with
// encoding/json and converted to an ExportRecord by Validate; nothing past the
// ingestion handler sees this type.
type ExportPayload struct {
	ExportDate   string  `json:"export_date"`
	Date         string  `json:"date"`
	ExportSource string  `json:"exportSource"`
	Metrics      Metrics `json:"metrics"`

	YesterdayInvoices struct {
		Invoices     []InvoicePayload `json:"invoices" validate:"dive"`
		TotalRevenue float64          `json:"total_revenue"`
		InvoiceCount int              `json:"invoice_count"`
	} `json:"yesterday_invoices"`

	YesterdayEstimates struct {
		EstimateCount int              `json:"estimate_count"`
		TopEstimates  []InvoicePayload `json:"top_estimates" validate:"dive"`
	} `json:"yesterday_estimates"`

	Highlights    []Highlight   `json:"highlights"`
	BDPerformance []Performance `json:"bdPerformance" validate:"dive"`
	PMPerformance []Performance `json:"pmPerformance" validate:"dive"`

	AIInsights           []Insight        `json:"aiInsights"`
	NewCustomerEstimates []InvoicePayload `json:"newCustomerEstimates" validate:"dive"`
	BiggestOrder         *InvoicePayload  `json:"biggestOrder"`
	TopPM                *Performance     `json:"topPM"`
	TopBD                *Performance     `json:"topBD"`
}

// InvoicePayload mirrors one invoice/estimate row of the export job.
type InvoicePayload struct {
	InvoiceNumber FlexString `json:"invoicenumber"`
	AccountName   string     `json:"account_name"`
	TakenBy       string     `json:"takenby"`
	SalesRep      string     `json:"salesrep"`
	Amount        float64    `json:"adjustedamountdue"`
	WebOrderID    FlexString `json:"weborderexternalid"`
	Description   string     `json:"job_description"`
}

func (p InvoicePayload) order() Order {
	return Order{
		Number:      string(p.InvoiceNumber),
		AccountName: strings.TrimSpace(p.AccountName),
		TakenBy:     p.TakenBy,
		SalesRep:    p.SalesRep,
		Amount:      p.Amount,
		WebOrderID:  string(p.WebOrderID),
		Description: p.Description,
	}
}

// FlexString accepts a JSON string, number or null. The export job emits
// invoice numbers as whatever type the upstream database column holds.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// Validate checks the payload and converts it to a typed ExportRecord dated
// in loc. receivedAt is stamped on the record.
func (p ExportPayload) Validate(loc *time.Location, receivedAt time.Time) (ExportRecord, error) {
	raw := strings.TrimSpace(p.ExportDate)
	if raw == "" {
		raw = strings.TrimSpace(p.Date)
	}
	if raw == "" {
		return ExportRecord{}, ErrMissingExportDate
	}
	if loc == nil {
		loc = time.UTC
	}
	exportDate, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return ExportRecord{}, fmt.Errorf("model: invalid export date %q: %w", raw, err)
	}

	if err := validate.Struct(p); err != nil {
		return ExportRecord{}, fmt.Errorf("model: invalid export payload: %w", err)
	}
	if err := uniqueNames("bdPerformance", p.BDPerformance); err != nil {
		return ExportRecord{}, err
	}
	if err := uniqueNames("pmPerformance", p.PMPerformance); err != nil {
		return ExportRecord{}, err
	}

	rec := ExportRecord{
		ExportDate:    exportDate,
		Metrics:       p.Metrics,
		Highlights:    nonNil(p.Highlights),
		BDPerformance: nonNil(p.BDPerformance),
		PMPerformance: nonNil(p.PMPerformance),
		AIInsights:    p.AIInsights,
		TopPM:         p.TopPM,
		TopBD:         p.TopBD,
		ExportSource:  p.ExportSource,
		ReceivedAt:    receivedAt,
	}
	if rec.ExportSource == "" {
		rec.ExportSource = "unknown"
	}

	rec.Invoices = orders(p.YesterdayInvoices.Invoices)
	rec.TopEstimates = orders(p.YesterdayEstimates.TopEstimates)
	rec.NewCustomerEstimates = orders(p.NewCustomerEstimates)
	if p.BiggestOrder != nil {
		o := p.BiggestOrder.order()
		rec.BiggestOrder = &o
	}

	return rec, nil
}

func uniqueNames(field string, list []Performance) error {
	seen := make(map[string]struct{}, len(list))
	for _, p := range list {
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("model: %s has duplicate name %q", field, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

func orders(in []InvoicePayload) []Order {
	if len(in) == 0 {
		return nil
	}
	out := make([]Order, len(in))
	for i, p := range in {
		out[i] = p.order()
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
