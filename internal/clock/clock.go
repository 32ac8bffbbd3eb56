// Package clock holds the date arithmetic shared by slot computation and calendar grids.
// Every function takes the business location explicitly.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateFormat is the wire format of calendar dates.
	DateFormat = "2006-01-02"
	// MonthFormat is the wire format of calendar months.
	MonthFormat = "2006-01"
	// TimeFormat is the wire format of local clock times.
	TimeFormat = "15:04"
)

// Clock is a local time of day in minutes since midnight.
type Clock int

// ParseClock parses "HH:MM" or "HH:MM:SS" (seconds must be zero).
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format: %q", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}

	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec != 0 {
			return 0, fmt.Errorf("invalid seconds in %q", s)
		}
	}

	c := Clock(hour*60 + minute)
	if c > 24*60 {
		return 0, fmt.Errorf("time %q is past midnight", s)
	}
	return c, nil
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int { return int(c) }

// String formats the clock as zero-padded HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// On returns the instant of the clock time on the local day of date.
// Wall-clock fields are used so DST transition days keep their local hours.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	day := Midnight(date, loc)
	return time.Date(day.Year(), day.Month(), day.Day(), int(c)/60, int(c)%60, 0, 0, day.Location())
}

// Midnight returns local midnight of date's calendar day in loc.
// The year, month and day of date are taken as given, whatever its own location.
func Midnight(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
}

// LocalDay converts an absolute instant to local midnight of its day in loc.
func LocalDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Midnight(t.In(loc), loc)
}

// SameDay reports whether instant t falls on the local calendar day of date.
func SameDay(t, date time.Time, loc *time.Location) bool {
	local := LocalDay(t, loc)
	day := Midnight(date, loc)
	return local.Equal(day)
}

// StartOfWeek returns the Monday on or before date.
func StartOfWeek(date time.Time, loc *time.Location) time.Time {
	day := Midnight(date, loc)
	offset := int(day.Weekday()) - 1
	if offset < 0 {
		offset = 6 // Sunday
	}
	return day.AddDate(0, 0, -offset)
}

// StartOfMonth returns the first day of date's month.
func StartOfMonth(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, loc)
}

// DaysIn returns the number of days in the month.
func DaysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths moves date by n months, clamping the day to the target month length
// (Jan 31 + 1 month is the last day of February, not early March).
func AddMonths(date time.Time, n int, loc *time.Location) time.Time {
	day := Midnight(date, loc)
	first := time.Date(day.Year(), day.Month()+time.Month(n), 1, 0, 0, 0, 0, day.Location())
	d := day.Day()
	if last := DaysIn(first.Month(), first.Year()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// MonthsBetween counts whole calendar months from a to b.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// ParseDate parses a YYYY-MM-DD date as local midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateFormat, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseMonth parses a YYYY-MM month as the first day of the month in loc.
func ParseMonth(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(MonthFormat, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q; expected YYYY-MM", s)
	}
	return t, nil
}

// LoadLocation resolves an IANA zone name, falling back when the name is empty.
func LoadLocation(name, fallback string) (*time.Location, error) {
	if name == "" {
		name = fallback
	}
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return loc, nil
}
