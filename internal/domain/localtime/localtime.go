// Package localtime converts upstream UTC timestamps into the campus time zone
// and buckets them by local calendar day.
package localtime

import (
	"fmt"
	"time"
	_ "time/tzdata" // campus zone must resolve on hosts without zoneinfo
)

// DefaultZone is the campus time zone.
const DefaultZone = "Asia/Vladivostok"

// WireLayout is the upstream timestamp layout; values are UTC.
const WireLayout = "2006-01-02 15:04:05"

// DayLayout is the layout dates are rendered in for the dashboard.
const DayLayout = "02.01.2006"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// System is the wall clock.
var System Clock = ClockFunc(time.Now)

// Load resolves a zone name, defaulting to DefaultZone when empty.
func Load(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

// ParseUTC parses a WireLayout timestamp as UTC.
func ParseUTC(s string) (time.Time, error) {
	t, err := time.ParseInLocation(WireLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// FormatUTC renders t in WireLayout after converting it to UTC.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(WireLayout)
}

// Date is a local calendar day. It is comparable and safe as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// String renders the date as DD.MM.YYYY.
func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(DayLayout)
}
