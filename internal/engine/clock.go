package engine

import "time"

// Clock supplies the current wall-clock instant. It is the only way the
// engine observes "now", and it is polled, never pushed: expiry detection
// happens on the periodic tick, so a boundary crossing is noticed up to
// one tick interval late.
//
// Production code uses SystemClock; tests use a manual clock from
// internal/testutil.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
