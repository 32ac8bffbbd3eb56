// Package slots computes bookable start times for a worker and a day.
package slots

import (
	"sort"
	"time"

	"slotbook/internal/clock"
	"slotbook/internal/model"
)

const (
	// Step is the granularity of candidate start times.
	Step = 30 * time.Minute
	// DefaultRelief is the turnaround buffer kept after every booking.
	DefaultRelief = 30 * time.Minute
	// DefaultServiceDuration is used when no service is selected yet.
	DefaultServiceDuration = 60 * time.Minute
)

// TimeSlot is a candidate start time for a worker and date.
type TimeSlot struct {
	Time     time.Time `json:"time"`
	Disabled bool      `json:"disabled"`
}

// SlotInfo is the wire shape used by the booking page.
type SlotInfo struct {
	Time     string `json:"time"` // "10:00"
	Start    string `json:"start"`
	Disabled bool   `json:"disabled"`
}

// Engine computes slots in one business timezone.
type Engine struct {
	Location        *time.Location
	Relief          time.Duration
	DefaultDuration time.Duration
	// NonBlocking lists booking statuses that do not occupy time.
	NonBlocking model.StatusSet
}

// NewEngine creates an engine with the default relief and duration.
func NewEngine(loc *time.Location) *Engine {
	return &Engine{
		Location:        loc,
		Relief:          DefaultRelief,
		DefaultDuration: DefaultServiceDuration,
		NonBlocking:     model.DefaultNonBlocking(),
	}
}

func (e *Engine) location() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}

func (e *Engine) relief() time.Duration {
	if e.Relief < 0 {
		return 0
	}
	return e.Relief
}

func (e *Engine) serviceDuration(services []model.Service) time.Duration {
	total := model.TotalDuration(services)
	if total > 0 {
		return total
	}
	if e.DefaultDuration > 0 {
		return e.DefaultDuration
	}
	return DefaultServiceDuration
}

// ComputeDaySlots returns every candidate start of the worker's window on date,
// ascending. A slot is disabled when [start, start+duration) overlaps a booking
// widened by the relief buffer or runs past the end of the window.
func (e *Engine) ComputeDaySlots(worker model.Worker, date time.Time, services []model.Service) []TimeSlot {
	loc := e.location()
	window, ok := model.WindowFor(worker.WorkingWindows, date, loc)
	if !ok {
		return []TimeSlot{}
	}

	bounds := window.On(date, loc)
	duration := e.serviceDuration(services)
	occupied := e.occupied(worker, date)

	var slots []TimeSlot
	for cursor := bounds.Start; cursor.Before(bounds.End); cursor = cursor.Add(Step) {
		candidate := model.Interval{Start: cursor, End: cursor.Add(duration)}
		slots = append(slots, TimeSlot{
			Time:     cursor,
			Disabled: candidate.End.After(bounds.End) || overlapsAny(candidate, occupied),
		})
	}
	if slots == nil {
		return []TimeSlot{}
	}
	return slots
}

// occupied returns the worker's extended occupied intervals on the local day of date.
func (e *Engine) occupied(worker model.Worker, date time.Time) []model.Interval {
	loc := e.location()
	nonBlocking := e.NonBlocking
	if nonBlocking == nil {
		nonBlocking = model.DefaultNonBlocking()
	}

	var out []model.Interval
	for _, b := range worker.Bookings {
		if !b.Blocking(nonBlocking) {
			continue
		}
		if !clock.SameDay(b.Start, date, loc) {
			continue
		}
		out = append(out, b.Interval().Extend(e.relief()))
	}
	return out
}

func overlapsAny(slot model.Interval, occupied []model.Interval) bool {
	for _, o := range occupied {
		if model.IntervalsOverlap(slot, o) {
			return true
		}
	}
	return false
}

// Available returns only enabled slots.
func Available(slots []TimeSlot) []TimeSlot {
	var available []TimeSlot
	for _, s := range slots {
		if !s.Disabled {
			available = append(available, s)
		}
	}
	return available
}

// IsAvailable reports whether start is an enabled slot in the list.
func IsAvailable(slots []TimeSlot, start time.Time) bool {
	for _, s := range slots {
		if s.Time.Equal(start) {
			return !s.Disabled
		}
	}
	return false
}

// ToSlotInfo converts slots to local "HH:MM" labels.
func ToSlotInfo(slots []TimeSlot, loc *time.Location) []SlotInfo {
	if loc == nil {
		loc = time.UTC
	}
	result := make([]SlotInfo, len(slots))
	for i, s := range slots {
		result[i] = SlotInfo{
			Time:     s.Time.In(loc).Format(clock.TimeFormat),
			Start:    s.Time.UTC().Format(time.RFC3339),
			Disabled: s.Disabled,
		}
	}
	return result
}

func sortSlots(slots []TimeSlot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Time.Before(slots[j].Time) })
}
