// Package progress tracks per-day completion state and the sticky
// expiry-notification flag.
//
// The in-memory map is the source of truth for the current process; every
// mutation persists synchronously to the external store before returning.
// Other engine instances converge by replacing their map from the store's
// change events (last writer wins).
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/annvangeert/fluisterweek/internal/kv"
)

// Entry is the progress record for one day index. Zero instants mean
// "not set"; an absent entry means the day is untouched.
//
// CompletedAt and ExpiryNotifiedAt are independent: completing a day
// after its expiry notification fired does not retract the notification
// flag, and the flag permanently suppresses further expiry notifications
// for that day.
type Entry struct {
	CompletedAt      time.Time
	ExpiryNotifiedAt time.Time
}

// wireEntry is the stored JSON shape: optional epoch-millis fields under
// the historical names, so state written by older deployments parses.
type wireEntry struct {
	WatchedAt      *int64 `json:"watchedAt,omitempty"`
	NotWatchedSent *int64 `json:"notWatchedSent,omitempty"`
}

// MarshalJSON encodes instants as epoch millis, omitting unset ones.
func (e Entry) MarshalJSON() ([]byte, error) {
	var w wireEntry
	if !e.CompletedAt.IsZero() {
		ms := e.CompletedAt.UnixMilli()
		w.WatchedAt = &ms
	}
	if !e.ExpiryNotifiedAt.IsZero() {
		ms := e.ExpiryNotifiedAt.UnixMilli()
		w.NotWatchedSent = &ms
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the epoch-millis wire shape.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Entry{}
	if w.WatchedAt != nil {
		e.CompletedAt = time.UnixMilli(*w.WatchedAt)
	}
	if w.NotWatchedSent != nil {
		e.ExpiryNotifiedAt = time.UnixMilli(*w.NotWatchedSent)
	}
	return nil
}

// Map holds the progress entries keyed by day index.
type Map map[int]Entry

// Store is the progress store for one engine instance.
type Store struct {
	mu      sync.Mutex
	kv      kv.Store
	entries Map
}

// NewStore loads existing progress from the external store. A malformed
// stored map degrades to empty with a warning; it is never fatal.
func NewStore(ctx context.Context, store kv.Store) (*Store, error) {
	s := &Store{kv: store, entries: Map{}}

	raw, ok, err := store.Get(ctx, kv.KeyProgress)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if ok {
		s.entries = decode(raw)
	}
	return s, nil
}

// Get returns the entry for a day index. ok is false for untouched days.
func (s *Store) Get(dayIndex int) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[dayIndex]
	return e, ok
}

// SetCompleted records a completion instant. Idempotent; a repeat call
// with a new instant overwrites. The sticky ExpiryNotifiedAt flag is
// deliberately left untouched: a fired notification is never retracted.
func (s *Store) SetCompleted(ctx context.Context, dayIndex int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[dayIndex]
	e.CompletedAt = at
	s.entries[dayIndex] = e
	return s.persistLocked(ctx)
}

// ClearCompleted removes the completion instant only, used by the
// toggle-to-reset action.
func (s *Store) ClearCompleted(ctx context.Context, dayIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[dayIndex]
	if !ok || e.CompletedAt.IsZero() {
		return nil
	}
	e.CompletedAt = time.Time{}
	s.entries[dayIndex] = e
	return s.persistLocked(ctx)
}

// MarkExpiryNotified sets the sticky expiry-notification flag. A silent
// no-op when already set; this is the at-most-once guard for not-watched
// notifications, durable across restarts.
func (s *Store) MarkExpiryNotified(ctx context.Context, dayIndex int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[dayIndex]
	if !e.ExpiryNotifiedAt.IsZero() {
		return nil
	}
	e.ExpiryNotifiedAt = at
	s.entries[dayIndex] = e
	return s.persistLocked(ctx)
}

// Replace swaps the in-memory map for the one carried by a change event
// from another instance. Malformed payloads are ignored with a warning.
func (s *Store) Replace(raw []byte) {
	entries := decode(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
}

// Snapshot returns a copy of all entries.
func (s *Store) Snapshot() Map {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(Map, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// persistLocked writes the full map to the external store. Callers must
// hold s.mu; the mutation is only considered done once this returns.
func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := s.kv.Put(ctx, kv.KeyProgress, data); err != nil {
		return fmt.Errorf("persist progress: %w", err)
	}
	return nil
}

// decode parses a stored progress map, degrading to empty on malformed
// input per the no-fatal-errors stance.
func decode(raw []byte) Map {
	if len(raw) == 0 {
		return Map{}
	}
	var m Map
	if err := json.Unmarshal(raw, &m); err != nil {
		slog.Warn("progress: malformed stored map, starting empty", "error", err)
		return Map{}
	}
	if m == nil {
		m = Map{}
	}
	return m
}
