package sqlitekv

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestOpen_CreatesAndReopens(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t)

	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Close())

	// Reopen the same file; state must survive.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	v, ok, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	defer s.Close()

	require.NoError(t, s.Put(ctx, "k", []byte("first")))
	require.NoError(t, s.Put(ctx, "k", []byte("second")))

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), v)
}

func TestStore_DeleteRemovesKey(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	defer s.Close()

	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Delete(ctx, "k"))

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is a silent no-op.
	require.NoError(t, s.Delete(ctx, "k"))
}

func TestStore_WatchSeesWritesAfterCommit(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	defer s.Close()

	events := s.Watch(ctx)
	require.NoError(t, s.Put(ctx, "k", []byte("v")))

	select {
	case ev := <-events:
		assert.Equal(t, "k", ev.Key)
		assert.Equal(t, []byte("v"), ev.Value)

		// The event is post-commit: a read must already see the value.
		v, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("v"), v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestStore_CloseClosesWatchers(t *testing.T) {
	s, _ := openTestStore(t)

	events := s.Watch(context.Background())
	require.NoError(t, s.Close())

	select {
	case _, ok := <-events:
		assert.False(t, ok, "expected channel to be closed")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestStore_DeleteAbsentKeyEmitsNoEvent(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	defer s.Close()

	events := s.Watch(ctx)
	require.NoError(t, s.Delete(ctx, "never-was"))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
