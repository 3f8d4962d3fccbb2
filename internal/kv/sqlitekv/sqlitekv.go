// Package sqlitekv provides a durable kv.Store backed by SQLite.
//
// Writes are committed before Put returns, so engine state survives process
// restarts. Change notification is in-process fan-out after commit: every
// engine instance sharing this *Store object sees every write. Instances in
// separate processes sharing the database file see each other's state on
// their next read, not via events.
package sqlitekv

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/annvangeert/fluisterweek/internal/kv"
)

//go:embed schema.sql
var schemaSQL string

const watchBuffer = 16

// Store is a SQLite-backed kv.Store. Safe for concurrent use.
type Store struct {
	db *sql.DB

	mu       sync.Mutex
	watchers map[int]chan kv.Event
	nextID   int
	closed   bool
	done     chan struct{}
}

var _ kv.Store = (*Store)(nil)

// Open creates or opens the SQLite database at path.
//
// The database is configured with WAL mode for concurrent reads, NORMAL
// synchronous mode, a 5-second busy timeout, and foreign key enforcement.
// Schema creation is idempotent; Open is safe to call on an existing file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY on concurrent mutation.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db:       db,
		watchers: make(map[int]chan kv.Event),
		done:     make(chan struct{}),
	}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_state WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Put upserts the value and notifies watchers after the commit.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, key, value)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	s.broadcast(kv.Event{Key: key, Value: value})
	return nil
}

// Delete removes key and notifies watchers with a nil value.
func (s *Store) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv_state WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	s.broadcast(kv.Event{Key: key})
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

// Close closes all watcher channels and the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
		for id, w := range s.watchers {
			delete(s.watchers, id)
			close(w)
		}
	}
	s.mu.Unlock()

	return s.db.Close()
}

func (s *Store) broadcast(ev kv.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchers {
		select {
		case w <- ev:
		default:
			slog.Warn("sqlitekv: dropping change event for slow watcher", "key", ev.Key)
		}
	}
}
