package model

import "time"

// CalendarEvent is the rendering projection of a booking.
type CalendarEvent struct {
	ID       string    `json:"id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Customer string    `json:"customer"`
	Service  string    `json:"service"`
	WorkerID string    `json:"worker_id,omitempty"`
	Status   string    `json:"status,omitempty"`
}

// EventFromBooking projects a booking for calendar grids.
func EventFromBooking(b Booking) CalendarEvent {
	ev := CalendarEvent{
		ID:       b.ID,
		Start:    b.Start,
		End:      b.End,
		Customer: b.Customer,
		Service:  b.ServiceName,
		Status:   b.Status,
	}
	if b.WorkerID != nil {
		ev.WorkerID = *b.WorkerID
	}
	return ev
}

// EventsFromWorkers flattens every worker's bookings into calendar events.
func EventsFromWorkers(workers []Worker) []CalendarEvent {
	var events []CalendarEvent
	for _, w := range workers {
		for _, b := range w.Bookings {
			events = append(events, EventFromBooking(b))
		}
	}
	return events
}
