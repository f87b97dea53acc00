package util

import (
	"strconv"
	"time"
)

// DateLayout is the canonical calendar-date format used across storage and APIs.
const DateLayout = "2006-01-02"

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// DayOfWeek maps t to Monday=0 .. Sunday=6. The mapping is fixed: the model
// encodes it numerically, so it must never change.
func DayOfWeek(t time.Time) int {
	return (int(t.UTC().Weekday()) + 6) % 7
}

// ParseDate tries the canonical date layout, RFC3339, and unix seconds.
// Returns (t, true) if any worked.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return Day(time.Unix(ts, 0)), true
	}
	return time.Time{}, false
}

// FormatDate renders t's UTC calendar day in the canonical layout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
