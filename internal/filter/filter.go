package filter

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"gigcal/internal/model"
)

// NoMaxPrice is the neutral upper price bound.
var NoMaxPrice = math.Inf(1)

// State is the user-controlled filter criteria. It is owned by the view and
// only read here.
type State struct {
	SearchQuery string       `json:"search_query"`
	StartDate   *time.Time   `json:"start_date,omitempty"`
	EndDate     *time.Time   `json:"end_date,omitempty"`
	MinPrice    float64      `json:"min_price"`
	MaxPrice    float64      `json:"-"`
	Genre       *model.Genre `json:"genre,omitempty"`
}

// DefaultState returns the neutral state that matches every event.
func DefaultState() State {
	return State{MaxPrice: NoMaxPrice}
}

// Clone returns a copy of s that shares no pointers with it.
func (s State) Clone() State {
	s.StartDate = copyTime(s.StartDate)
	s.EndDate = copyTime(s.EndDate)
	if s.Genre != nil {
		g := *s.Genre
		s.Genre = &g
	}
	return s
}

// MarshalJSON encodes NoMaxPrice as a null max_price.
func (s State) MarshalJSON() ([]byte, error) {
	type plain State
	out := struct {
		plain
		MaxPrice *float64 `json:"max_price"`
	}{plain: plain(s)}
	if !math.IsInf(s.MaxPrice, 1) {
		v := s.MaxPrice
		out.MaxPrice = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a missing or null max_price as NoMaxPrice.
func (s *State) UnmarshalJSON(data []byte) error {
	type plain State
	in := struct {
		*plain
		MaxPrice *float64 `json:"max_price"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.MaxPrice = NoMaxPrice
	if in.MaxPrice != nil {
		s.MaxPrice = *in.MaxPrice
	}
	return nil
}

// IsActive reports whether any criterion differs from DefaultState.
func (s State) IsActive() bool {
	return strings.TrimSpace(s.SearchQuery) != "" ||
		s.StartDate != nil ||
		s.EndDate != nil ||
		s.MinPrice != 0 ||
		!math.IsInf(s.MaxPrice, 1) ||
		s.Genre != nil
}

// Filter returns the events matching every active criterion of s, in input
// order. events is not modified and the result is always a fresh slice.
func Filter(events []model.NormalizedEvent, s State) []model.NormalizedEvent {
	query := strings.ToLower(strings.TrimSpace(s.SearchQuery))

	var from, to time.Time
	if s.StartDate != nil {
		from = startOfDay(*s.StartDate)
	}
	if s.EndDate != nil {
		to = startOfDay(*s.EndDate).AddDate(0, 0, 1).Add(-time.Millisecond)
	}

	out := make([]model.NormalizedEvent, 0, len(events))
	for _, ev := range events {
		if s.Genre != nil && ev.Genre != *s.Genre {
			continue
		}
		if query != "" && !matchesText(ev, query) {
			continue
		}
		if s.StartDate != nil && ev.StartDate.Before(from) {
			continue
		}
		if s.EndDate != nil && ev.StartDate.After(to) {
			continue
		}
		if !matchesPrice(ev.Price, s.MinPrice, s.MaxPrice) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// MatchCount is len(Filter(events, s)) without keeping the result.
func MatchCount(events []model.NormalizedEvent, s State) int {
	return len(Filter(events, s))
}

func matchesText(ev model.NormalizedEvent, query string) bool {
	haystack := strings.ToLower(ev.Name + " " + ev.Description + " " + ev.Organizer)
	return strings.Contains(haystack, query)
}

// matchesPrice is an interval overlap test. Free events only pass when the
// lower bound is zero.
func matchesPrice(p model.Price, lo, hi float64) bool {
	if p.IsFree {
		return lo == 0
	}
	return p.Min <= hi && p.Max >= lo
}

// startOfDay is midnight of t's calendar date in t's own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
