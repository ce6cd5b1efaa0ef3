package calendar

import (
	"fmt"
	"time"

	"gigcal/internal/model"
)

// GridSize is the number of cells in a month view: six full weeks.
const GridSize = 42

// DateKey is a calendar date without a time component, "YYYY-MM-DD".
type DateKey string

// KeyOf returns the date key of t in t's own location.
func KeyOf(t time.Time) DateKey {
	return DateKey(t.Format("2006-01-02"))
}

// Index buckets events by the date they start on.
type Index map[DateKey][]model.NormalizedEvent

// IndexByDate builds an Index with start dates read in loc (time.Local if
// nil). Events without a start date are left out. Events keep their input
// order within a day.
func IndexByDate(events []model.NormalizedEvent, loc *time.Location) Index {
	if loc == nil {
		loc = time.Local
	}
	idx := make(Index)
	for _, ev := range events {
		if ev.StartDate.IsZero() {
			continue
		}
		key := KeyOf(ev.StartDate.In(loc))
		idx[key] = append(idx[key], ev)
	}
	return idx
}

// Day is one cell of the month grid.
type Day struct {
	Date           time.Time               `json:"date"`
	Key            DateKey                 `json:"key"`
	IsCurrentMonth bool                    `json:"is_current_month"`
	IsToday        bool                    `json:"is_today"`
	Events         []model.NormalizedEvent `json:"events"`
}

// Grid is a Sunday-first month view.
type Grid [GridSize]Day

// BuildGrid lays out the month containing year/month in today's location:
// days of the previous month up to the first Sunday, every day of the month,
// then days of the next month until the grid is full. Out-of-range months
// roll over the way time.Date does.
func BuildGrid(year int, month time.Month, idx Index, today time.Time) Grid {
	loc := today.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	todayKey := KeyOf(today)

	var g Grid
	i := 0
	put := func(d time.Time, current bool) {
		key := KeyOf(d)
		g[i] = Day{
			Date:           d,
			Key:            key,
			IsCurrentMonth: current,
			IsToday:        key == todayKey,
			Events:         idx[key],
		}
		i++
	}

	// Leading days from the previous month.
	for n := int(first.Weekday()); n > 0; n-- {
		put(first.AddDate(0, 0, -n), false)
	}

	// The month itself.
	daysInMonth := first.AddDate(0, 1, -1).Day()
	for d := 0; d < daysInMonth; d++ {
		put(first.AddDate(0, 0, d), true)
	}

	// Trailing days from the next month.
	next := first.AddDate(0, 1, 0)
	for d := 0; i < GridSize; d++ {
		put(next.AddDate(0, 0, d), false)
	}

	if i != GridSize {
		panic(fmt.Sprintf("calendar: built %d cells, want %d", i, GridSize))
	}
	return g
}

// DaysIn returns the number of days of year/month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
