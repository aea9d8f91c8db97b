package digest

import (
	"time"

	"github.com/nyashahama/retriever-digest/internal/dates"
	"github.com/nyashahama/retriever-digest/internal/model"
)

// MockSource marks sample records.
const MockSource = "mock"

// MockDaily returns the fixed sample record used when no export has been
// ingested, dated the business day before ref, and a sample of the business
// day before that for the day-over-day comparison.
func MockDaily(ref time.Time) (current, previous model.ExportRecord) {
	day := previousBusinessDay(dates.StartOfDay(ref))
	return mockRecord(day, 0), mockRecord(previousBusinessDay(day), 3)
}

func previousBusinessDay(t time.Time) time.Time {
	day := t.AddDate(0, 0, -1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// MockWeek returns sample Monday–Friday records for the week containing ref
// and the week before it.
func MockWeek(ref time.Time) (thisWeek, lastWeek []model.ExportRecord) {
	this := dates.WeekBoundaries(ref).Start
	last := dates.PriorWeek(ref).Start
	for i := 0; i < 5; i++ {
		thisWeek = append(thisWeek, mockRecord(this.AddDate(0, 0, i), i))
		lastWeek = append(lastWeek, mockRecord(last.AddDate(0, 0, i), i+2))
	}
	return thisWeek, lastWeek
}

// mockRecord builds one sample day. variant shifts the figures so a sample
// week is not five identical days.
func mockRecord(day time.Time, variant int) model.ExportRecord {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	v := float64(variant % 5)
	dom := float64(day.Day())

	return model.ExportRecord{
		ExportDate: day,
		Metrics: model.Metrics{
			DailyRevenue:          4250 + 310*v,
			DailySalesCount:       12 + variant%5,
			DailyEstimatesCreated: 18 + variant%3,
			DailyNewCustomers:     2 + variant%2,

			MonthToDateRevenue:          4100 * dom,
			MonthToDateSalesCount:       11 * day.Day(),
			MonthToDateEstimatesCreated: 17 * day.Day(),
			MonthToDateNewCustomers:     2 * day.Day(),

			YearToDateRevenue:          4100 * float64(day.YearDay()),
			YearToDateSalesCount:       11 * day.YearDay(),
			YearToDateEstimatesCreated: 17 * day.YearDay(),
			YearToDateNewCustomers:     2 * day.YearDay(),
		},
		Highlights: []model.Highlight{
			{Type: "sample", Description: "Sample: 500 tri-fold brochures shipped a day early"},
			{Type: "sample", Description: "Sample: new wide-format banner account opened"},
		},
		PMPerformance: []model.Performance{
			{Name: "Sample PM A", OrdersCompleted: 6 + variant%3, Revenue: 2100 + 120*v},
			{Name: "Sample PM B", OrdersCompleted: 4, Revenue: 1450},
		},
		BDPerformance: []model.Performance{
			{Name: "Sample BD A", OrdersCompleted: 3, Revenue: 1800 + 90*v},
			{Name: "Sample BD B", OrdersCompleted: 2 + variant%2, Revenue: 950},
		},
		Invoices: []model.Order{
			{Number: "SAMPLE-1001", AccountName: "Sample Print Co", Amount: 1890},
			{Number: "SAMPLE-1002", AccountName: "Example Events", Amount: 1240 + 50*v},
			{Number: "SAMPLE-1003", AccountName: "Demo Dental Group", Amount: 620},
			{Number: "SAMPLE-1004", AccountName: "Placeholder Realty", Amount: 410},
		},
		NewCustomerEstimates: []model.Order{
			{Number: "SAMPLE-E77", AccountName: "Test Bakery", Amount: 780},
		},
		ExportSource: MockSource,
		ReceivedAt:   day.Add(18 * time.Hour),
	}
}
