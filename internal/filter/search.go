package filter

import (
	"sync"
	"time"

	"gigcal/internal/model"
)

// ResultFunc receives every recomputed result set.
type ResultFunc func(events []model.NormalizedEvent, matchCount int)

// Search is an interactive filter session over a fixed event set. Typed
// queries are applied through a Debouncer; every other change recomputes
// immediately.
type Search struct {
	mu       sync.Mutex
	events   []model.NormalizedEvent
	state    State
	applied  string
	results  []model.NormalizedEvent
	seq      uint64
	debounce *Debouncer
	onResult ResultFunc

	// emitMu serializes callbacks; delivered is the seq of the last one.
	emitMu     sync.Mutex
	delivered  uint64
	// beforeEmit runs between a recompute and its delivery. Tests only.
	beforeEmit func(seq uint64)
}

type searchConfig struct {
	delay    time.Duration
	sched    Scheduler
	onResult ResultFunc
}

// SearchOption configures a Search.
type SearchOption func(*searchConfig)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) SearchOption {
	return func(c *searchConfig) { c.delay = d }
}

// WithScheduler replaces the real timers, mainly for tests.
func WithScheduler(s Scheduler) SearchOption {
	return func(c *searchConfig) { c.sched = s }
}

// WithOnResult registers a callback for recomputed results.
func WithOnResult(fn ResultFunc) SearchOption {
	return func(c *searchConfig) { c.onResult = fn }
}

// NewSearch starts a session in the default state. The initial result is
// computed synchronously and not reported to the callback.
//
// Results reach the callback in computation order: a result computed before
// one that was already delivered is dropped. The callback must not call back
// into the Search.
func NewSearch(events []model.NormalizedEvent, opts ...SearchOption) *Search {
	cfg := searchConfig{delay: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Search{
		events:   append([]model.NormalizedEvent(nil), events...),
		state:    DefaultState(),
		debounce: NewDebouncer(cfg.delay, cfg.sched),
		onResult: cfg.onResult,
	}
	s.recomputeLocked()
	s.delivered = s.seq
	return s
}

// SetQuery records the typed query and schedules matching after the
// debounce delay, replacing any pending run.
func (s *Search) SetQuery(q string) {
	s.mu.Lock()
	s.state.SearchQuery = q
	s.mu.Unlock()

	s.debounce.Trigger(func() {
		s.mu.Lock()
		s.applied = s.state.SearchQuery
		res, seq := s.recomputeLocked()
		s.mu.Unlock()
		s.emit(res, seq)
	})
}

// SetDateRange sets inclusive date bounds; nil clears a bound.
func (s *Search) SetDateRange(start, end *time.Time) {
	s.update(func(st *State) {
		st.StartDate = copyTime(start)
		st.EndDate = copyTime(end)
	})
}

// SetPriceRange sets the price bounds.
func (s *Search) SetPriceRange(lo, hi float64) {
	s.update(func(st *State) {
		st.MinPrice = lo
		st.MaxPrice = hi
	})
}

// SetGenre restricts results to g; nil means all genres.
func (s *Search) SetGenre(g *model.Genre) {
	s.update(func(st *State) {
		if g == nil {
			st.Genre = nil
			return
		}
		v := *g
		st.Genre = &v
	})
}

// SetEvents replaces the event set and recomputes.
func (s *Search) SetEvents(events []model.NormalizedEvent) {
	s.mu.Lock()
	s.events = append([]model.NormalizedEvent(nil), events...)
	res, seq := s.recomputeLocked()
	s.mu.Unlock()
	s.emit(res, seq)
}

// Clear cancels any pending query and resets to the default state.
func (s *Search) Clear() {
	s.debounce.Stop()
	s.mu.Lock()
	s.state = DefaultState()
	s.applied = ""
	res, seq := s.recomputeLocked()
	s.mu.Unlock()
	s.emit(res, seq)
}

// Close cancels any pending query run.
func (s *Search) Close() {
	s.debounce.Stop()
}

// State returns a copy of the current criteria, including the not yet
// applied query.
func (s *Search) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// IsActive reports whether the clear-filters affordance should show.
func (s *Search) IsActive() bool {
	return s.State().IsActive()
}

// Results returns a copy of the last computed result set.
func (s *Search) Results() []model.NormalizedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.NormalizedEvent(nil), s.results...)
}

// MatchCount is the size of the last computed result set.
func (s *Search) MatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func (s *Search) update(mut func(*State)) {
	s.mu.Lock()
	mut(&s.state)
	res, seq := s.recomputeLocked()
	s.mu.Unlock()
	s.emit(res, seq)
}

func (s *Search) recomputeLocked() ([]model.NormalizedEvent, uint64) {
	st := s.state
	st.SearchQuery = s.applied
	s.results = Filter(s.events, st)
	s.seq++
	return s.results, s.seq
}

func (s *Search) emit(res []model.NormalizedEvent, seq uint64) {
	if s.beforeEmit != nil {
		s.beforeEmit(seq)
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if seq <= s.delivered {
		return
	}
	s.delivered = seq
	if s.onResult != nil {
		s.onResult(append([]model.NormalizedEvent(nil), res...), len(res))
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
