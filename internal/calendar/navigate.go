package calendar

import (
	"fmt"
	"time"

	"slotbook/internal/clock"
)

// View is a dashboard calendar view.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewDay, ViewWeek, ViewMonth:
		return View(s), nil
	case "":
		return ViewWeek, nil
	default:
		return "", fmt.Errorf("unknown view %q; expected day, week or month", s)
	}
}

// Navigate moves date by step units of the view. Dashboard navigation is unbounded.
func Navigate(view View, date time.Time, step int, loc *time.Location) time.Time {
	day := clock.Midnight(date, loc)
	switch view {
	case ViewDay:
		return day.AddDate(0, 0, step)
	case ViewMonth:
		return clock.AddMonths(day, step, loc)
	default:
		return day.AddDate(0, 0, 7*step)
	}
}
