// Package clock holds the wall-clock helpers shared by attendance, settings
// and the sweep: HH:MM parsing, minutes since midnight and display-timezone
// calendar days.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the 24-hour time-of-day format used in records and settings.
const Layout = "15:04"

// ParseHHMM returns minutes since midnight for a 24-hour "HH:MM" string.
func ParseHHMM(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 {
		return 0, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}

// MustHHMM is ParseHHMM for compile-time constants.
func MustHHMM(s string) int {
	m, err := ParseHHMM(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FormatHHMM renders t's time of day in loc.
func FormatHHMM(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(Layout)
}

// Minutes returns minutes since midnight of t in loc, seconds dropped.
func Minutes(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

// Day strips the time of day from t as seen in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// At returns the instant in loc on day's calendar date at minutes since
// midnight. day's own location fields are used, so dates scanned from the
// database in UTC keep their calendar day.
func At(day time.Time, minutes int, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, loc)
}

// MonthRange returns the first and last calendar day of month/year and the
// number of days between them inclusive.
func MonthRange(year int, month time.Month, loc *time.Location) (first, last time.Time, days int) {
	first = time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last = first.AddDate(0, 1, -1)
	return first, last, last.Day()
}
