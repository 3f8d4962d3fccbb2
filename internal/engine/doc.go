// Package engine implements the fluisterweek unlock and notification
// engine.
//
// The engine ties the pure unlock calculator, the progress store, the
// override merger, and the webhook dispatcher together behind one run
// loop.
//
// ARCHITECTURE:
//
// Single-Goroutine Run Loop:
// Run() processes everything in one goroutine: periodic ticks (the only
// place "now" is observed for expiry) and change events from the external
// key-value store (how concurrently running instances converge). This
// keeps state transitions sequential and easy to reason about. User
// actions (toggle, override edits, webhook config) may arrive from other
// goroutines; shared caches are guarded by a mutex and every mutation is
// persisted through the store before it is considered done.
//
// Tick Processing:
//  1. Recompute the unlocked-day count from the start instant and now.
//  2. Scan all day indices for expiry: unlocked at least one full
//     day-interval ago, not completed, not yet notified.
//  3. For each hit, dispatch a not-watched notification (fire-and-forget)
//     and set the sticky expiry flag unconditionally.
//
// The scan is idempotent and safe to re-run against partial or stale
// state: the sticky flag makes a second pass a no-op, and a day completed
// in the meantime is skipped.
//
// Notifications are at-most-once per day transition, not guaranteed
// delivery: a failed attempt is logged and never retried. A day may be
// flagged expired up to one tick interval late; that approximation is
// accepted.
package engine
