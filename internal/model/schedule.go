package model

import (
	"fmt"
	"sort"
	"time"

	"slotbook/internal/clock"
)

// WorkingWindow is a recurring weekly availability rule.
type WorkingWindow struct {
	Start      clock.Clock    `json:"start"`
	End        clock.Clock    `json:"end"`
	DaysOfWeek []time.Weekday `json:"days_of_week"` // 0-6 (Sunday-Saturday)
}

// NewWorkingWindow validates "HH:MM" bounds and weekdays.
func NewWorkingWindow(start, end string, days ...int) (WorkingWindow, error) {
	s, err := clock.ParseClock(start)
	if err != nil {
		return WorkingWindow{}, fmt.Errorf("%w: start: %v", ErrMalformedWorkingWindow, err)
	}
	e, err := clock.ParseClock(end)
	if err != nil {
		return WorkingWindow{}, fmt.Errorf("%w: end: %v", ErrMalformedWorkingWindow, err)
	}
	if e <= s {
		return WorkingWindow{}, fmt.Errorf("%w: end %s must be after start %s", ErrMalformedWorkingWindow, end, start)
	}

	weekdays := make([]time.Weekday, 0, len(days))
	seen := make(map[int]bool, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return WorkingWindow{}, fmt.Errorf("%w: day_of_week %d out of range 0-6", ErrMalformedWorkingWindow, d)
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		weekdays = append(weekdays, time.Weekday(d))
	}
	sort.Slice(weekdays, func(i, j int) bool { return weekdays[i] < weekdays[j] })

	return WorkingWindow{Start: s, End: e, DaysOfWeek: weekdays}, nil
}

// MustWorkingWindow is NewWorkingWindow for literals known to be valid.
func MustWorkingWindow(start, end string, days ...int) WorkingWindow {
	w, err := NewWorkingWindow(start, end, days...)
	if err != nil {
		panic(err)
	}
	return w
}

// Covers reports whether the window applies on the weekday.
func (w WorkingWindow) Covers(day time.Weekday) bool {
	for _, d := range w.DaysOfWeek {
		if d == day {
			return true
		}
	}
	return false
}

// On returns the window's absolute bounds on the local day of date.
func (w WorkingWindow) On(date time.Time, loc *time.Location) Interval {
	return Interval{Start: w.Start.On(date, loc), End: w.End.On(date, loc)}
}

// Length returns the window length.
func (w WorkingWindow) Length() time.Duration {
	return time.Duration(w.End-w.Start) * time.Minute
}

// WindowFor returns the first window covering the weekday of date in loc.
func WindowFor(windows []WorkingWindow, date time.Time, loc *time.Location) (WorkingWindow, bool) {
	day := clock.Midnight(date, loc).Weekday()
	for _, w := range windows {
		if w.Covers(day) {
			return w, true
		}
	}
	return WorkingWindow{}, false
}
