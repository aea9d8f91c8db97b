package dates_test

import (
	"testing"
	"time"

	"github.com/nyashahama/retriever-digest/internal/dates"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(dates.DayLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

// ─── WeekBoundaries ───────────────────────────────────────────────────────────

func TestWeekBoundaries_EveryDayOfTwoYears(t *testing.T) {
	start := day("2025-01-01")
	for i := 0; i < 730; i++ {
		ref := start.AddDate(0, 0, i).Add(13*time.Hour + 17*time.Minute)
		w := dates.WeekBoundaries(ref)

		if w.Start.Weekday() != time.Monday {
			t.Fatalf("%s: start %s is not a Monday", ref, w.Start)
		}
		if h, m, s := w.Start.Clock(); h != 0 || m != 0 || s != 0 || w.Start.Nanosecond() != 0 {
			t.Fatalf("%s: start %s is not midnight", ref, w.Start)
		}
		wantEnd := time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day()+4, 23, 59, 59, 999_000_000, time.UTC)
		if !w.End.Equal(wantEnd) {
			t.Fatalf("%s: end = %s, want %s", ref, w.End, wantEnd)
		}

		switch ref.Weekday() {
		case time.Saturday, time.Sunday:
			if !ref.After(w.End) {
				t.Fatalf("%s: weekend day should fall after its week's Friday", ref)
			}
			if ref.Sub(w.End) > 48*time.Hour {
				t.Fatalf("%s: weekend day mapped to the wrong (non-preceding) week", ref)
			}
		default:
			if !w.Contains(ref) {
				t.Fatalf("%s: not within [%s, %s]", ref, w.Start, w.End)
			}
		}
	}
}

func TestWeekBoundaries_YearCrossing(t *testing.T) {
	w := dates.WeekBoundaries(day("2026-01-01")) // Thursday
	if got := w.Start.Format(dates.DayLayout); got != "2025-12-29" {
		t.Errorf("start = %s, want 2025-12-29", got)
	}
	if got := w.End.Format(dates.DayLayout); got != "2026-01-02" {
		t.Errorf("end = %s, want 2026-01-02", got)
	}
}

func TestWeekBoundaries_SundayBelongsToEndedWeek(t *testing.T) {
	w := dates.WeekBoundaries(day("2026-10-18")) // Sunday
	if got := w.Start.Format(dates.DayLayout); got != "2026-10-12" {
		t.Errorf("start = %s, want 2026-10-12", got)
	}
}

func TestWeekBoundaries_KeepsLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	ref := time.Date(2026, 3, 10, 9, 0, 0, 0, ny)
	w := dates.WeekBoundaries(ref)
	if w.Start.Location() != ny {
		t.Errorf("location = %v, want %v", w.Start.Location(), ny)
	}
	if w.Start.Hour() != 0 {
		t.Errorf("start hour = %d, want 0 local", w.Start.Hour())
	}
}

func TestPriorWeek(t *testing.T) {
	w := dates.PriorWeek(day("2026-01-01"))
	if got := w.Start.Format(dates.DayLayout); got != "2025-12-22" {
		t.Errorf("start = %s, want 2025-12-22", got)
	}
	if got := w.End.Format(dates.DayLayout); got != "2025-12-26" {
		t.Errorf("end = %s, want 2025-12-26", got)
	}
}

// ─── BirthdayTargetDates ──────────────────────────────────────────────────────

func TestBirthdayTargetDates(t *testing.T) {
	tests := []struct {
		ref  string
		want []string
	}{
		{"2026-10-12", []string{"10-12"}},                   // Monday
		{"2026-10-15", []string{"10-15"}},                   // Thursday
		{"2026-10-16", []string{"10-16", "10-17", "10-18"}}, // Friday
		{"2026-10-17", []string{"10-17"}},                   // Saturday
		{"2026-10-18", []string{"10-18"}},                   // Sunday
		{"2026-01-30", []string{"01-30", "01-31", "02-01"}}, // Friday across month end
		{"2027-12-31", []string{"12-31", "01-01", "01-02"}}, // Friday across year end
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got := dates.BirthdayTargetDates(day(tt.ref))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	tests := map[string]int{
		"2026-02-10": 28,
		"2028-02-10": 29,
		"2026-04-01": 30,
		"2026-12-31": 31,
	}
	for ref, want := range tests {
		if got := dates.DaysInMonth(day(ref)); got != want {
			t.Errorf("DaysInMonth(%s) = %d, want %d", ref, got, want)
		}
	}
}
