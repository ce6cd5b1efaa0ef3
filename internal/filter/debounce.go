package filter

import (
	"sync"
	"time"
)

// DefaultDebounce is the pause in typing after which a search runs.
const DefaultDebounce = 300 * time.Millisecond

// Timer is a pending single-shot callback.
type Timer interface {
	Stop() bool
}

// Scheduler schedules single-shot callbacks. The default uses time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs at most one callback per pause in triggering. Each Trigger
// stops the pending timer before scheduling a new one, so only the latest
// callback can run.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	sched Scheduler
	timer Timer
	gen   uint64
}

// NewDebouncer returns a Debouncer with the given delay. A nil scheduler
// uses real timers; a non-positive delay uses DefaultDebounce.
func NewDebouncer(delay time.Duration, sched Scheduler) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if sched == nil {
		sched = realScheduler{}
	}
	return &Debouncer{delay: delay, sched: sched}
}

// Trigger cancels any pending callback and schedules fn after the delay.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	gen := d.gen
	d.timer = d.sched.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A timer that fired while being stopped loses to the newer one.
		if gen != d.gen || d.timer == nil {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Stop cancels the pending callback, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Pending reports whether a callback is scheduled and has not run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
