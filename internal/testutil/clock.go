package testutil

import (
	"sync"
	"time"
)

// ManualClock is a thread-safe wall clock that only moves when a test
// moves it. It satisfies engine.Clock.
//
// Unlike the system clock, ManualClock makes expiry boundaries exact:
// tests advance past a threshold and tick the engine, with no sleeping
// and no flakes.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock frozen at the given instant.
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

// Now returns the current frozen instant.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to an absolute instant. May move backwards; tests
// exercising stale-state handling rely on that.
func (c *ManualClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
