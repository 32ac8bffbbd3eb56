package model

import (
	"fmt"
	"strings"
	"time"
)

// Interval is a half-open [Start, End) range of instants.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IntervalsOverlap is the half-open overlap test: a.Start < b.End && a.End > b.Start.
func IntervalsOverlap(a, b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// Extend widens the end of the interval by d.
func (i Interval) Extend(d time.Duration) Interval {
	return Interval{Start: i.Start, End: i.End.Add(d)}
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

// Booking is a scheduled appointment occupying a time interval.
type Booking struct {
	ID        string    `json:"id"`
	WorkerID  *string   `json:"worker_id"`
	ServiceID string    `json:"service_id"`
	Start     time.Time `json:"start_time"`
	End       time.Time `json:"end_time"`
	Status    string    `json:"status"`

	Customer    string `json:"customer,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
}

// NewBooking validates the interval.
func NewBooking(id string, workerID *string, serviceID string, start, end time.Time, status string) (Booking, error) {
	b := Booking{ID: id, WorkerID: workerID, ServiceID: serviceID, Start: start, End: end, Status: status}
	if err := b.Validate(); err != nil {
		return Booking{}, err
	}
	return b, nil
}

// Validate fails with ErrMalformedBookingInterval unless End is after Start.
func (b Booking) Validate() error {
	if b.Start.IsZero() || b.End.IsZero() {
		return fmt.Errorf("%w: booking %s has a missing bound", ErrMalformedBookingInterval, b.ID)
	}
	if !b.End.After(b.Start) {
		return fmt.Errorf("%w: booking %s ends at %s, not after start %s",
			ErrMalformedBookingInterval, b.ID, b.End.Format(time.RFC3339), b.Start.Format(time.RFC3339))
	}
	return nil
}

// Interval returns [Start, End).
func (b Booking) Interval() Interval { return Interval{Start: b.Start, End: b.End} }

// OverlapsWith reports whether two bookings share time.
func (b Booking) OverlapsWith(other Booking) bool {
	return IntervalsOverlap(b.Interval(), other.Interval())
}

// StatusSet is a case-insensitive set of status names.
type StatusSet map[string]struct{}

// NewStatusSet builds a set from names.
func NewStatusSet(names ...string) StatusSet {
	s := make(StatusSet, len(names))
	for _, n := range names {
		s[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	return s
}

// DefaultNonBlocking lists statuses that free the booked time.
func DefaultNonBlocking() StatusSet {
	return NewStatusSet("cancelled", "canceled")
}

// Has reports membership.
func (s StatusSet) Has(status string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// Blocking reports whether the booking still occupies its interval.
func (b Booking) Blocking(nonBlocking StatusSet) bool {
	return !nonBlocking.Has(b.Status)
}
