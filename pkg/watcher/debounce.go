package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration is the default quiet period before a change
// notification fires. Mod installs touch many files in a burst; one reload
// per burst is enough.
const DefaultDebounceDuration = 250 * time.Millisecond

// Debouncer coalesces rapid triggers into a single callback invocation.
type Debouncer struct {
	duration time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet period.
// A non-positive duration falls back to DefaultDebounceDuration.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{duration: d}
}

// Duration returns the configured quiet period.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}

// Trigger schedules fn to run after the quiet period. A trigger arriving
// before the period elapses resets the timer and replaces the callback.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel drops any pending callback.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
