// Package daterange computes calendar-relative boundaries in the location of
// the instant passed in. Weeks start on Monday.
package daterange

import "time"

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay is the last representable instant of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DaysSinceMonday is 0 on Monday and 6 on Sunday.
func DaysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func StartOfWeek(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, -DaysSinceMonday(t))
}

func EndOfWeek(t time.Time) time.Time {
	return EndOfDay(StartOfWeek(t).AddDate(0, 0, 6))
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// UTCDate is midnight UTC on t's local calendar date. Date-only fields such
// as a task's due date are stored this way.
func UTCDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
