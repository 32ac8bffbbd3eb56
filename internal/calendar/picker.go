package calendar

import (
	"time"

	"slotbook/internal/clock"
)

// DefaultMonthsAhead bounds how far the booking date picker looks forward.
const DefaultMonthsAhead = 6

// MonthPicker is the booking wizard's bounded month navigation.
type MonthPicker struct {
	Today       time.Time
	MonthsAhead int
	Location    *time.Location
}

// NewMonthPicker anchors the picker at today.
func NewMonthPicker(today time.Time, loc *time.Location) MonthPicker {
	return MonthPicker{Today: today, MonthsAhead: DefaultMonthsAhead, Location: loc}
}

func (p MonthPicker) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p MonthPicker) ahead() int {
	if p.MonthsAhead <= 0 {
		return DefaultMonthsAhead
	}
	return p.MonthsAhead
}

// First is the earliest month the picker shows.
func (p MonthPicker) First() time.Time {
	return clock.StartOfMonth(p.Today.In(p.loc()), p.loc())
}

// Last is the latest month the picker shows.
func (p MonthPicker) Last() time.Time {
	return p.First().AddDate(0, p.ahead(), 0)
}

// Clamp keeps month inside [First, Last].
func (p MonthPicker) Clamp(month time.Time) time.Time {
	m := clock.StartOfMonth(month, p.loc())
	if m.Before(p.First()) {
		return p.First()
	}
	if m.After(p.Last()) {
		return p.Last()
	}
	return m
}

// Prev moves one month back, never before the current month.
func (p MonthPicker) Prev(month time.Time) time.Time {
	return p.Clamp(clock.StartOfMonth(month, p.loc()).AddDate(0, -1, 0))
}

// Next moves one month forward, never past MonthsAhead.
func (p MonthPicker) Next(month time.Time) time.Time {
	return p.Clamp(clock.StartOfMonth(month, p.loc()).AddDate(0, 1, 0))
}

// CanPrev reports whether Prev would move.
func (p MonthPicker) CanPrev(month time.Time) bool {
	return p.Clamp(month).After(p.First())
}

// CanNext reports whether Next would move.
func (p MonthPicker) CanNext(month time.Time) bool {
	return p.Clamp(month).Before(p.Last())
}

// SelectableDates lists the dates of month from today onward.
func (p MonthPicker) SelectableDates(month time.Time) []time.Time {
	loc := p.loc()
	m := p.Clamp(month)
	today := clock.LocalDay(p.Today, loc)

	var out []time.Time
	for i := 0; i < clock.DaysIn(m.Month(), m.Year()); i++ {
		d := m.AddDate(0, 0, i)
		if d.Before(today) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// PickerState is the wire shape of the picker for one month.
type PickerState struct {
	Month   string   `json:"month"`
	Prev    string   `json:"prev"`
	Next    string   `json:"next"`
	CanPrev bool     `json:"can_prev"`
	CanNext bool     `json:"can_next"`
	Dates   []string `json:"dates"`
}

// State describes the picker positioned at month.
func (p MonthPicker) State(month time.Time) PickerState {
	m := p.Clamp(month)
	dates := p.SelectableDates(m)
	labels := make([]string, len(dates))
	for i, d := range dates {
		labels[i] = d.Format(clock.DateFormat)
	}
	return PickerState{
		Month:   m.Format(clock.MonthFormat),
		Prev:    p.Prev(m).Format(clock.MonthFormat),
		Next:    p.Next(m).Format(clock.MonthFormat),
		CanPrev: p.CanPrev(m),
		CanNext: p.CanNext(m),
		Dates:   labels,
	}
}
