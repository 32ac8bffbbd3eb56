// Package calendar projects calendar events onto day, week and month grids.
package calendar

import (
	"sort"
	"time"

	"slotbook/internal/clock"
	"slotbook/internal/model"
)

// HourRange is an inclusive range of hour rows.
type HourRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// DefaultHourRange matches the dashboard's 8:00 to 20:00 rows.
var DefaultHourRange = HourRange{From: 8, To: 20}

// Contains reports whether hour has a row.
func (r HourRange) Contains(hour int) bool {
	return hour >= r.From && hour <= r.To
}

// HourRow holds events starting within one hour.
type HourRow struct {
	Hour   int                   `json:"hour"`
	Events []model.CalendarEvent `json:"events"`
}

// NowIndicator marks the current time inside an hour row.
type NowIndicator struct {
	Hour          int     `json:"hour"`
	OffsetPercent float64 `json:"offset_percent"`
}

// DayGrid is one day of hour rows.
type DayGrid struct {
	Date  string        `json:"date"`
	Hours []HourRow     `json:"hours"`
	Now   *NowIndicator `json:"now,omitempty"`
	// Unscheduled holds events of the day that no hour row can take.
	Unscheduled []model.CalendarEvent `json:"unscheduled"`
}

// WeekGrid is seven day columns starting Monday.
type WeekGrid struct {
	Start       string                `json:"start"`
	Days        []DayGrid             `json:"days"`
	Unscheduled []model.CalendarEvent `json:"unscheduled"`
}

// DayCell is one month grid cell.
type DayCell struct {
	Date    string                `json:"date"`
	Day     int                   `json:"day"`
	InMonth bool                  `json:"in_month"`
	Events  []model.CalendarEvent `json:"events"`
}

// MonthGrid is full Monday-to-Sunday weeks covering a month.
type MonthGrid struct {
	Month       string                `json:"month"`
	Weeks       [][]DayCell           `json:"weeks"`
	Unscheduled []model.CalendarEvent `json:"unscheduled"`
}

// Builder builds grids in the business timezone.
type Builder struct {
	Location *time.Location
	Hours    HourRange
}

// NewBuilder returns a builder with the default hour range.
func NewBuilder(loc *time.Location) *Builder {
	return &Builder{Location: loc, Hours: DefaultHourRange}
}

func (b *Builder) location() *time.Location {
	if b.Location == nil {
		return time.UTC
	}
	return b.Location
}

func (b *Builder) hours() HourRange {
	if b.Hours.From == 0 && b.Hours.To == 0 {
		return DefaultHourRange
	}
	return b.Hours
}

// BuildDayGrid buckets events of date by local start hour.
// Events with no start appear in Unscheduled, as do events outside the hour range.
func (b *Builder) BuildDayGrid(date time.Time, events []model.CalendarEvent, now time.Time) DayGrid {
	undated, dated := splitUndated(events)
	grid := b.dayGrid(date, dated, now)
	grid.Unscheduled = append(grid.Unscheduled, undated...)
	return grid
}

func (b *Builder) dayGrid(date time.Time, events []model.CalendarEvent, now time.Time) DayGrid {
	loc := b.location()
	hours := b.hours()
	day := clock.Midnight(date, loc)

	grid := DayGrid{
		Date:        day.Format(clock.DateFormat),
		Unscheduled: []model.CalendarEvent{},
	}

	rows := make(map[int][]model.CalendarEvent)
	for _, ev := range events {
		if !clock.SameDay(ev.Start, day, loc) {
			continue
		}
		hour := ev.Start.In(loc).Hour()
		if !hours.Contains(hour) {
			grid.Unscheduled = append(grid.Unscheduled, ev)
			continue
		}
		rows[hour] = append(rows[hour], ev)
	}

	for h := hours.From; h <= hours.To; h++ {
		evs := rows[h]
		sortEvents(evs)
		if evs == nil {
			evs = []model.CalendarEvent{}
		}
		grid.Hours = append(grid.Hours, HourRow{Hour: h, Events: evs})
	}
	sortEvents(grid.Unscheduled)

	if !now.IsZero() {
		local := now.In(loc)
		if clock.SameDay(now, day, loc) && hours.Contains(local.Hour()) {
			grid.Now = &NowIndicator{
				Hour:          local.Hour(),
				OffsetPercent: float64(local.Minute()) / 60 * 100,
			}
		}
	}
	return grid
}

// BuildWeekGrid returns seven columns from the Monday on or before date.
func (b *Builder) BuildWeekGrid(date time.Time, events []model.CalendarEvent, now time.Time) WeekGrid {
	loc := b.location()
	undated, dated := splitUndated(events)
	start := clock.StartOfWeek(date, loc)

	week := WeekGrid{
		Start:       start.Format(clock.DateFormat),
		Days:        make([]DayGrid, 0, 7),
		Unscheduled: undated,
	}
	for i := 0; i < 7; i++ {
		week.Days = append(week.Days, b.dayGrid(start.AddDate(0, 0, i), dated, now))
	}
	return week
}

// BuildMonthGrid returns whole weeks from the Monday before the 1st to the
// Sunday after the last day, each cell holding events of that local date.
func (b *Builder) BuildMonthGrid(date time.Time, events []model.CalendarEvent) MonthGrid {
	loc := b.location()
	undated, dated := splitUndated(events)

	first := clock.StartOfMonth(date, loc)
	last := first.AddDate(0, 0, clock.DaysIn(first.Month(), first.Year())-1)
	start := clock.StartOfWeek(first, loc)
	end := clock.StartOfWeek(last, loc).AddDate(0, 0, 6)

	byDate := make(map[string][]model.CalendarEvent)
	for _, ev := range dated {
		key := clock.LocalDay(ev.Start, loc).Format(clock.DateFormat)
		byDate[key] = append(byDate[key], ev)
	}

	grid := MonthGrid{
		Month:       first.Format(clock.MonthFormat),
		Unscheduled: undated,
	}
	var week []DayCell
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(clock.DateFormat)
		evs := byDate[key]
		sortEvents(evs)
		if evs == nil {
			evs = []model.CalendarEvent{}
		}
		week = append(week, DayCell{
			Date:    key,
			Day:     d.Day(),
			InMonth: d.Month() == first.Month(),
			Events:  evs,
		})
		if len(week) == 7 {
			grid.Weeks = append(grid.Weeks, week)
			week = nil
		}
	}
	return grid
}

func splitUndated(events []model.CalendarEvent) (undated, dated []model.CalendarEvent) {
	undated = []model.CalendarEvent{}
	for _, ev := range events {
		if ev.Start.IsZero() {
			undated = append(undated, ev)
			continue
		}
		dated = append(dated, ev)
	}
	return undated, dated
}

func sortEvents(events []model.CalendarEvent) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
}
