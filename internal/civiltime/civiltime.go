package civiltime

import (
	"fmt"
	"time"

	// Fidelis stores every timestamp in one civil zone; the zone must
	// resolve even on hosts without a system zoneinfo database.
	_ "time/tzdata"
)

// DefaultZone is the IANA zone the Fidelis service keeps its calendar in.
const DefaultZone = "Pacific/Auckland"

const (
	// DateTimeLayout is the "YYYY-MM-DD HH:MM:SS" form used by transaction listings.
	DateTimeLayout = "2006-01-02 15:04:05"
	// W3CLayout is the W3C datetime form (offset always numeric, never "Z").
	W3CLayout = "2006-01-02T15:04:05-07:00"
	// DateLayout is a plain calendar date.
	DateLayout = "2006-01-02"
)

// LoadLocation resolves name, falling back to DefaultZone when name is empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return loc, nil
}

// DateTime converts t into loc and formats it as DateTimeLayout.
func DateTime(t time.Time, loc *time.Location) string {
	return in(t, loc).Format(DateTimeLayout)
}

// W3C converts t into loc and formats it as a W3C datetime.
func W3C(t time.Time, loc *time.Location) string {
	return in(t, loc).Format(W3CLayout)
}

// Date converts t into loc and formats the calendar date.
func Date(t time.Time, loc *time.Location) string {
	return in(t, loc).Format(DateLayout)
}

// EndOfMonth returns the last instant of the given month in loc.
func EndOfMonth(year int, month time.Month, loc *time.Location) (time.Time, error) {
	if month < time.January || month > time.December {
		return time.Time{}, fmt.Errorf("month must be 1..12 (got %d)", int(month))
	}
	if loc == nil {
		loc = time.UTC
	}
	// First day of next month
	firstNext := time.Date(year, month, 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
	return firstNext.Add(-time.Nanosecond), nil
}

func in(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc)
}
