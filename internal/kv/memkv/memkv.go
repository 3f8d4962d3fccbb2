// Package memkv provides an in-memory kv.Store.
//
// It models the browser pairing of localStorage with the storage event:
// writes are visible to every reader immediately and broadcast to all
// watchers. It doubles as the store used by tests and by multiple engine
// instances simulating concurrent views in one process.
package memkv

import (
	"context"
	"log/slog"
	"sync"

	"github.com/annvangeert/fluisterweek/internal/kv"
)

// watchBuffer is the per-watcher channel capacity. A watcher that falls
// this far behind starts dropping events; droppped events are logged.
// Consumers re-read keys on every event, so a drop only delays
// convergence until the next write.
const watchBuffer = 16

// Store is an in-memory kv.Store. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	values   map[string][]byte
	watchers map[int]chan kv.Event
	nextID   int
	closed   bool
	done     chan struct{}
}

var _ kv.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		values:   make(map[string][]byte),
		watchers: make(map[int]chan kv.Event),
		done:     make(chan struct{}),
	}
}

// Get returns the stored value for key.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	// Copy so callers cannot mutate the stored value.
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Put stores value under key and broadcasts the change.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored

	s.broadcastLocked(kv.Event{Key: key, Value: stored})
	return nil
}

// Delete removes key and broadcasts a nil-value event.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)

	s.broadcastLocked(kv.Event{Key: key})
	return nil
}

// Watch registers a change watcher. The returned channel closes when ctx
// is cancelled or the store is closed.
func (s *Store) Watch(ctx context.Context) <-chan kv.Event {
	s.mu.Lock()
	ch := make(chan kv.Event, watchBuffer)
	if s.closed {
		close(ch)
		s.mu.Unlock()
		return ch
	}
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w)
		}
	}()

	return ch
}

// Close closes all watcher channels. Subsequent Watch calls return a
// closed channel; Get/Put keep working so late readers do not fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	for id, w := range s.watchers {
		delete(s.watchers, id)
		close(w)
	}
	return nil
}

// broadcastLocked fans an event out to all watchers without blocking.
// Callers must hold s.mu.
func (s *Store) broadcastLocked(ev kv.Event) {
	for _, w := range s.watchers {
		select {
		case w <- ev:
		default:
			slog.Warn("memkv: dropping change event for slow watcher", "key", ev.Key)
		}
	}
}
