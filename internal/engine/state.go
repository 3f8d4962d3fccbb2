package engine

import (
	"time"

	"github.com/annvangeert/fluisterweek/internal/course"
	"github.com/annvangeert/fluisterweek/internal/progress"
)

// DayState is the per-day position in the engine's state machine:
//
//	Locked -> UnlockedPending -> {Completed | ExpiredNotified}
//
// Completed is reachable from ExpiredNotified (completing late does not
// retract the notification flag) and is reversible back to
// UnlockedPending via the user's toggle-off.
type DayState string

const (
	// StateLocked means the unlock threshold has not been reached.
	StateLocked DayState = "locked"
	// StateUnlockedPending means the day is selectable and awaiting
	// completion.
	StateUnlockedPending DayState = "unlocked-pending"
	// StateCompleted means the user marked the day done.
	StateCompleted DayState = "completed"
	// StateExpiredNotified means the day expired uncompleted and its
	// not-watched notification was attempted.
	StateExpiredNotified DayState = "expired-notified"
)

// DayStatus is one day's view for a presentation layer: the effective
// (override-merged) content plus unlock and progress state.
type DayStatus struct {
	Index            int
	State            DayState
	UnlocksAt        time.Time // shown for locked days ("komt vrij op ...")
	CompletedAt      time.Time // zero when not completed
	ExpiryNotifiedAt time.Time // zero when never notified
	Content          course.Day
}

// stateFor derives the state machine position for one day.
// Completed wins over ExpiredNotified: the sticky flag stays set but the
// day presents as done.
func stateFor(index, unlockedCount int, entry progress.Entry) DayState {
	if index >= unlockedCount {
		return StateLocked
	}
	if !entry.CompletedAt.IsZero() {
		return StateCompleted
	}
	if !entry.ExpiryNotifiedAt.IsZero() {
		return StateExpiredNotified
	}
	return StateUnlockedPending
}
