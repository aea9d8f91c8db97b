// Package dates holds the calendar arithmetic the digest relies on: the
// Monday–Friday business week window and the birthday lookahead used by the
// daily send. It is dependency-free and never reads the clock itself; every
// function takes the reference time explicitly.
package dates

import "time"

// DayLayout is the canonical calendar-day format used for export dates and
// digest dates throughout the system.
const DayLayout = "2006-01-02"

// Window is an inclusive time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// WeekBoundaries returns Monday 00:00:00.000 and Friday 23:59:59.999 of the
// business week containing ref, in ref's location.
//
// Sunday counts as six days after the preceding Monday, so a Saturday or
// Sunday reference resolves to the week that just ended, never the upcoming
// one.
func WeekBoundaries(ref time.Time) Window {
	dow := int(ref.Weekday())
	daysToMonday := dow - 1
	if dow == 0 {
		daysToMonday = 6
	}

	// AddDate on a midnight-normalised date rolls across month and year
	// boundaries correctly (Thu 2026-01-01 → Mon 2025-12-29).
	monday := StartOfDay(ref).AddDate(0, 0, -daysToMonday)
	friday := monday.AddDate(0, 0, 4)

	return Window{
		Start: monday,
		End:   EndOfDay(friday),
	}
}

// PriorWeek returns the business week immediately before the one containing
// ref.
func PriorWeek(ref time.Time) Window {
	return WeekBoundaries(WeekBoundaries(ref).Start.AddDate(0, 0, -7))
}

// BirthdayTargetDates returns the MM-DD strings whose birthdays belong in the
// digest sent on ref. Fridays also carry Saturday and Sunday because no digest
// runs over the weekend.
func BirthdayTargetDates(ref time.Time) []string {
	day := StartOfDay(ref)
	out := []string{day.Format("01-02")}
	if day.Weekday() == time.Friday {
		out = append(out,
			day.AddDate(0, 0, 1).Format("01-02"),
			day.AddDate(0, 0, 2).Format("01-02"),
		)
	}
	return out
}

// StartOfDay truncates t to 00:00:00.000 in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 on t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	// Day 0 of next month normalises to the last day of this month.
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// ParseDay parses a YYYY-MM-DD string as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DayLayout, s, loc)
}
