package domain

import (
	"fmt"
	"time"
)

// DayLayout is the calendar-date wire format used everywhere in the planner.
const DayLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing day %q: %w", s, err)
	}
	return t, nil
}

// MustDay parses a day string that callers have already validated. A malformed
// string here is a programming error, not an input error.
func MustDay(s string) time.Time {
	t, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// DayString formats a time as YYYY-MM-DD.
func DayString(t time.Time) string {
	return t.Format(DayLayout)
}

// DaysBetween returns the number of whole days from a to b (negative when b
// precedes a).
func DaysBetween(a, b time.Time) int {
	return int(b.Truncate(24*time.Hour).Sub(a.Truncate(24*time.Hour)).Hours() / 24)
}

// WeekdayKey returns the three-letter lowercase weekday key (mon..sun) used by
// sleep and calendar-constraint overrides.
func WeekdayKey(t time.Time) string {
	switch t.Weekday() {
	case time.Monday:
		return "mon"
	case time.Tuesday:
		return "tue"
	case time.Wednesday:
		return "wed"
	case time.Thursday:
		return "thu"
	case time.Friday:
		return "fri"
	case time.Saturday:
		return "sat"
	default:
		return "sun"
	}
}

// IterDays returns every calendar day from start to end inclusive, ascending.
func IterDays(start, end time.Time) []time.Time {
	var days []time.Time
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 0, 1) {
		days = append(days, cursor)
	}
	return days
}
