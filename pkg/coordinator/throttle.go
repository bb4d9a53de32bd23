package coordinator

import (
	"sync"
	"time"
)

// DefaultWindow is the throttle window used when none is configured.
const DefaultWindow = 500 * time.Millisecond

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// ShouldFire is the throttle decision: fire when nothing has fired yet or
// when at least window has elapsed since the last firing.
func ShouldFire(now, lastFired time.Time, fired bool, window time.Duration) bool {
	if !fired {
		return true
	}
	return now.Sub(lastFired) >= window
}

// Throttle is a leading-edge throttle with no trailing call.
type Throttle struct {
	mu         sync.Mutex
	window     time.Duration
	now        Clock
	last       time.Time
	fired      bool
	allowed    uint64
	suppressed uint64
}

// NewThrottle creates a Throttle. A non-positive window means DefaultWindow
// and a nil clock means time.Now.
func NewThrottle(window time.Duration, now Clock) *Throttle {
	if window <= 0 {
		window = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Throttle{window: window, now: now}
}

// Allow reports whether the caller should act now, and records the firing.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if !ShouldFire(now, t.last, t.fired, t.window) {
		t.suppressed++
		return false
	}
	t.last = now
	t.fired = true
	t.allowed++
	return true
}

// Window returns the throttle window.
func (t *Throttle) Window() time.Duration {
	return t.window
}

// Stats returns how many calls were allowed and how many were dropped.
func (t *Throttle) Stats() (allowed, suppressed uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowed, t.suppressed
}
