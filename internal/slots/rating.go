package slots

import (
	"time"

	"slotbook/internal/clock"
	"slotbook/internal/model"
)

// Rating is a coarse day capacity label for calendar cells.
type Rating string

const (
	RatingNone        Rating = "none"
	RatingFullyBooked Rating = "fully-booked"
	RatingLimited     Rating = "limited"
	RatingAvailable   Rating = "available"
)

// Capacity counts free and total 30-minute sub-slots across workers.
type Capacity struct {
	Free  int `json:"free"`
	Total int `json:"total"`
}

// DayCapacity evaluates each worker's window in Step-sized sub-slots against
// the worker's extended occupied intervals. Service duration is not considered.
func (e *Engine) DayCapacity(date time.Time, workers []model.Worker) Capacity {
	loc := e.location()
	var c Capacity

	for _, w := range workers {
		window, ok := model.WindowFor(w.WorkingWindows, date, loc)
		if !ok {
			continue
		}
		bounds := window.On(date, loc)
		occupied := e.occupied(w, date)

		for cursor := bounds.Start; !cursor.Add(Step).After(bounds.End); cursor = cursor.Add(Step) {
			c.Total++
			if !overlapsAny(model.Interval{Start: cursor, End: cursor.Add(Step)}, occupied) {
				c.Free++
			}
		}
	}
	return c
}

// Label maps capacity to a rating. Zero total is checked before dividing.
func (c Capacity) Label() Rating {
	if c.Total == 0 {
		return RatingNone
	}
	if c.Free == 0 {
		return RatingFullyBooked
	}
	if c.Free*100 <= c.Total*50 {
		return RatingLimited
	}
	return RatingAvailable
}

// ComputeDayAvailabilityRating rates a day across all given workers.
func (e *Engine) ComputeDayAvailabilityRating(date time.Time, workers []model.Worker) Rating {
	return e.DayCapacity(date, workers).Label()
}

// DayRating pairs a date with its rating.
type DayRating struct {
	Date   string `json:"date"`
	Rating Rating `json:"rating"`
}

// ComputeMonthRatings rates every day of month's calendar month.
func (e *Engine) ComputeMonthRatings(month time.Time, workers []model.Worker) []DayRating {
	loc := e.location()
	first := clock.StartOfMonth(month, loc)
	days := clock.DaysIn(first.Month(), first.Year())

	out := make([]DayRating, 0, days)
	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i)
		out = append(out, DayRating{
			Date:   day.Format(clock.DateFormat),
			Rating: e.ComputeDayAvailabilityRating(day, workers),
		})
	}
	return out
}
