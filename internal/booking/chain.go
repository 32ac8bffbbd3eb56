package booking

import (
	"time"

	"slotbook/internal/model"
)

// Segment is one service's interval inside a multi-service booking.
type Segment struct {
	Service model.Service `json:"service"`
	Start   time.Time     `json:"start"`
	End     time.Time     `json:"end"`
}

// PlanChain lays services out back to back from start, inserting relief between
// consecutive services. List order is booking order.
func PlanChain(start time.Time, services []model.Service, relief time.Duration) []Segment {
	segments := make([]Segment, 0, len(services))
	cursor := start
	for i, s := range services {
		if i > 0 {
			cursor = cursor.Add(relief)
		}
		end := cursor.Add(s.Duration.Std())
		segments = append(segments, Segment{Service: s, Start: cursor, End: end})
		cursor = end
	}
	return segments
}

// Span returns the interval from the first start to the last end.
func Span(segments []Segment) model.Interval {
	if len(segments) == 0 {
		return model.Interval{}
	}
	return model.Interval{Start: segments[0].Start, End: segments[len(segments)-1].End}
}
