package calendar

import (
	"time"

	"gigcal/internal/clock"
	"gigcal/internal/model"
)

// Key is a keyboard key name as reported by the browser (KeyboardEvent.key).
type Key string

const (
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowDown  Key = "ArrowDown"
	KeyHome       Key = "Home"
	KeyEnd        Key = "End"
	KeyPageUp     Key = "PageUp"
	KeyPageDown   Key = "PageDown"
	KeyEnter      Key = "Enter"
	KeySpace      Key = " "

	// KeySpaceName is accepted as well for callers that send "Space".
	KeySpaceName Key = "Space"
)

const weekLen = 7

// CheckoutTrigger opens an external checkout widget for an event. The
// navigator only hands the selected event over on request.
type CheckoutTrigger interface {
	OpenCheckout(ev model.NormalizedEvent)
}

// Navigator is the focus/selection state machine of a month grid. Focus is a
// flat index into the 42 cells.
type Navigator struct {
	year  int
	month time.Month
	idx   Index
	clock clock.Clock

	grid  Grid
	focus int

	selectedDate  *time.Time
	selectedEvent *model.NormalizedEvent
}

// NewNavigator shows year/month with focus on today when it is in that
// month, otherwise on the first of the month.
func NewNavigator(year int, month time.Month, idx Index, clk clock.Clock) *Navigator {
	if clk == nil {
		clk = clock.NewSystem(nil)
	}
	n := &Navigator{idx: idx, clock: clk}
	n.show(year, month)

	n.focus = n.firstOfMonth()
	for i, d := range n.grid {
		if d.IsToday && d.IsCurrentMonth {
			n.focus = i
			break
		}
	}
	return n
}

// HandleKey applies one key press and reports whether the key is bound.
// Unbound keys and moves past the grid edges leave the state unchanged.
func (n *Navigator) HandleKey(k Key) bool {
	switch k {
	case KeyArrowLeft:
		n.moveFocus(-1)
	case KeyArrowRight:
		n.moveFocus(1)
	case KeyArrowUp:
		n.moveFocus(-weekLen)
	case KeyArrowDown:
		n.moveFocus(weekLen)
	case KeyHome:
		n.focus = (n.focus / weekLen) * weekLen
	case KeyEnd:
		n.focus = (n.focus/weekLen)*weekLen + weekLen - 1
	case KeyPageUp:
		n.changeMonth(-1)
	case KeyPageDown:
		n.changeMonth(1)
	case KeyEnter, KeySpace, KeySpaceName:
		n.Select(n.focus)
	default:
		return false
	}
	return true
}

// SetFocus moves focus to i, clamped to the grid.
func (n *Navigator) SetFocus(i int) {
	n.focus = clamp(i, 0, GridSize-1)
}

// Select selects the cell at i if it is in the current month and not in the
// past, and reports whether it did. The selected event is the first event
// of that day, or nil.
func (n *Navigator) Select(i int) bool {
	if i < 0 || i >= GridSize {
		return false
	}
	day := n.grid[i]
	if !day.IsCurrentMonth || n.isPast(day.Date) {
		return false
	}

	date := day.Date
	n.selectedDate = &date
	n.selectedEvent = nil
	if len(day.Events) > 0 {
		ev := day.Events[0]
		n.selectedEvent = &ev
	}
	return true
}

// ClearSelection drops the selected date and event.
func (n *Navigator) ClearSelection() {
	n.selectedDate = nil
	n.selectedEvent = nil
}

// SetIndex swaps the event index, e.g. after filtering, and rebuilds the
// grid. Focus is kept; the selection is cleared.
func (n *Navigator) SetIndex(idx Index) {
	n.idx = idx
	n.show(n.year, n.month)
	n.ClearSelection()
}

// HandOff passes the selected event to t and reports whether there was one.
func (n *Navigator) HandOff(t CheckoutTrigger) bool {
	if t == nil || n.selectedEvent == nil {
		return false
	}
	t.OpenCheckout(*n.selectedEvent)
	return true
}

func (n *Navigator) Year() int { return n.year }
func (n *Navigator) Month() time.Month { return n.month }
func (n *Navigator) Grid() Grid { return n.grid }
func (n *Navigator) Focus() int { return n.focus }
func (n *Navigator) FocusedDay() Day { return n.grid[n.focus] }

func (n *Navigator) SelectedDate() *time.Time {
	if n.selectedDate == nil {
		return nil
	}
	d := *n.selectedDate
	return &d
}

func (n *Navigator) SelectedEvent() *model.NormalizedEvent {
	if n.selectedEvent == nil {
		return nil
	}
	ev := *n.selectedEvent
	return &ev
}

func (n *Navigator) moveFocus(delta int) {
	n.focus = clamp(n.focus+delta, 0, GridSize-1)
}

func (n *Navigator) changeMonth(delta int) {
	first := time.Date(n.year, n.month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	n.show(first.Year(), first.Month())
	n.ClearSelection()
}

func (n *Navigator) show(year int, month time.Month) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	n.year, n.month = first.Year(), first.Month()
	n.grid = BuildGrid(n.year, n.month, n.idx, n.clock.Now())
}

func (n *Navigator) firstOfMonth() int {
	for i, d := range n.grid {
		if d.IsCurrentMonth {
			return i
		}
	}
	return 0
}

func (n *Navigator) isPast(date time.Time) bool {
	today := n.clock.Now()
	y, m, d := today.Date()
	return date.Before(time.Date(y, m, d, 0, 0, 0, 0, today.Location()))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
