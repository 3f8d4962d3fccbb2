// Package unlock computes which course days are accessible.
//
// A course starts at a per-user start instant. Day N (zero-indexed) unlocks
// once N full day-intervals have passed since the start of the calendar day
// the course began on. Both the start instant and "now" are normalized to
// local midnight before differencing, so partial-day drift never causes an
// off-by-one.
//
// All functions are pure: no state, no side effects, no failure modes.
package unlock

import "time"

// DayInterval is the length of one course day.
const DayInterval = 24 * time.Hour

// StartOfDay returns t truncated to midnight of its local calendar day.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// Count returns how many days are unlocked at now, always in [1, totalDays].
//
// Day one is unlocked immediately, even if now precedes start (defensive
// clamp against clock skew or a future-dated start instant).
//
// Returns 0 only for the degenerate case totalDays < 1.
func Count(start, now time.Time, totalDays int) int {
	if totalDays < 1 {
		return 0
	}
	daysPassed := int(StartOfDay(now).Sub(StartOfDay(start)) / DayInterval)
	unlocked := daysPassed + 1
	if unlocked < 1 {
		return 1
	}
	if unlocked > totalDays {
		return totalDays
	}
	return unlocked
}

// At returns the unlock threshold for a day index: the instant the day
// becomes selectable.
func At(start time.Time, dayIndex int) time.Time {
	return StartOfDay(start).Add(time.Duration(dayIndex) * DayInterval)
}

// Expired reports whether a day has been unlocked for at least one full
// day-interval at now. An expired day that was never completed is a
// candidate for a not-watched notification.
func Expired(start time.Time, dayIndex int, now time.Time) bool {
	return now.Sub(At(start, dayIndex)) >= DayInterval
}
