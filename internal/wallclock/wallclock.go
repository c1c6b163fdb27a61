// Package wallclock is the single normalization point for scheduled times.
//
// Scheduled sessions are naive local wall-clock values: a date and a
// time-of-day with no timezone semantics. They are stored as bare
// "2006-01-02T15:04:05" text and compared field-wise. Inputs that carry a
// zone designator are accepted for compatibility, but the zone is ignored
// and the clock fields are kept as-is.
package wallclock

import (
	"errors"
	"strings"
	"time"
)

// Layout is the canonical storage representation.
const Layout = "2006-01-02T15:04:05"

// DateLayout is the canonical date-only representation.
const DateLayout = "2006-01-02"

// ErrUnparseable indicates the value matched none of the accepted layouts.
var ErrUnparseable = errors.New("wallclock: unparseable date-time")

var acceptedLayouts = []string{
	Layout,
	"2006-01-02T15:04",
	DateLayout,
}

// Parse interprets value as a local wall-clock instant.
//
// Bare layouts are parsed directly. RFC 3339 values (the "T...Z" and
// offset-suffixed forms older records used) are accepted by discarding the
// zone and rebuilding the same clock fields in the local location, so
// "2024-03-10T09:00:00Z" and "2024-03-10T09:00:00" normalize identically.
func Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrUnparseable
	}

	for _, layout := range acceptedLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return ts, nil
		}
	}

	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return stripZone(ts), nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return stripZone(ts), nil
	}

	return time.Time{}, ErrUnparseable
}

// MustParse is a test helper form of Parse that panics on failure.
func MustParse(value string) time.Time {
	ts, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return ts
}

// Format renders t in the canonical storage layout. The layout sorts
// lexicographically in timestamp order, which the store relies on for range
// comparisons.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// FormatDate renders the date component only.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay truncates t to midnight of its calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayOfWeek returns the ISO weekday number: Monday is 1, Sunday is 7.
func DayOfWeek(t time.Time) int {
	weekday := int(t.Weekday())
	if weekday == 0 {
		return 7
	}
	return weekday
}

func stripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
}
