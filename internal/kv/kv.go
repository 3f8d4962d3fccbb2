// Package kv defines the external key-value store contract the engine
// persists through.
//
// The store is deliberately dumb: opaque byte values under well-known keys,
// plus a change-notification channel so concurrently running engine
// instances (separate tabs, separate processes sharing a database) can
// resynchronize their in-memory caches without polling.
//
// Implementations: memkv (in-memory, models the browser localStorage +
// storage-event pair) and sqlitekv (durable, SQLite-backed).
package kv

import "context"

// Well-known storage keys. The values keep the historical "fluisterweek-"
// prefix so state written by older deployments stays readable.
const (
	KeyStart       = "fluisterweek-start"        // start instant, decimal epoch millis
	KeyProgress    = "fluisterweek-progress"     // progress map, JSON
	KeyWebhooks    = "fluisterweek-webhooks"     // webhook config, JSON
	KeyOverrides   = "fluisterweek-day-content"  // day overrides, JSON
	KeyDataVersion = "fluisterweek-data-version" // opaque version marker
)

// Event describes a single write observed on the store. Value is nil when
// the key was deleted.
type Event struct {
	Key   string
	Value []byte
}

// Store is the persistence contract. Every write must be durable (to the
// implementation's standard) before the call returns, and must be fanned
// out to all watchers.
//
// Watchers MAY receive echoes of their own instance's writes; consumers are
// expected to apply events idempotently.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put stores value under key and notifies watchers.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key and notifies watchers with a nil value.
	// Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Watch returns a channel of change events. The channel is closed when
	// ctx is cancelled or the store is closed. A slow consumer may miss
	// events; it must treat every event as "re-read this key", not as a
	// reliable log.
	Watch(ctx context.Context) <-chan Event

	// Close releases resources and closes all watcher channels.
	Close() error
}
