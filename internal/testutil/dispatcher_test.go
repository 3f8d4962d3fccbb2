package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annvangeert/fluisterweek/internal/webhook"
)

func TestCaptureDispatcher_RecordsCalls(t *testing.T) {
	d := NewCaptureDispatcher()
	cfg := webhook.Config{Watched: "https://example.com/w"}

	outcome := d.Dispatch(context.Background(), 2, webhook.KindWatched, cfg)
	assert.Equal(t, webhook.OutcomeSent, outcome)

	calls := d.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 2, calls[0].DayIndex)
	assert.Equal(t, webhook.KindWatched, calls[0].Kind)
	assert.Equal(t, cfg, calls[0].Config)
}

func TestCaptureDispatcher_FiltersByKind(t *testing.T) {
	d := NewCaptureDispatcher()
	d.Dispatch(context.Background(), 0, webhook.KindWatched, webhook.Config{})
	d.Dispatch(context.Background(), 1, webhook.KindNotWatched, webhook.Config{})
	d.Dispatch(context.Background(), 2, webhook.KindWatched, webhook.Config{})

	watched := d.CallsOf(webhook.KindWatched)
	require.Len(t, watched, 2)
	assert.Equal(t, 0, watched[0].DayIndex)
	assert.Equal(t, 2, watched[1].DayIndex)
}

func TestCaptureDispatcher_ConfigurableOutcome(t *testing.T) {
	d := NewCaptureDispatcher()
	d.SetOutcome(webhook.OutcomeFailed)

	outcome := d.Dispatch(context.Background(), 0, webhook.KindWatched, webhook.Config{})
	assert.Equal(t, webhook.OutcomeFailed, outcome)
	assert.Len(t, d.Calls(), 1, "failed attempts are still recorded")
}

func TestCaptureDispatcher_Reset(t *testing.T) {
	d := NewCaptureDispatcher()
	d.Dispatch(context.Background(), 0, webhook.KindWatched, webhook.Config{})
	d.Reset()
	assert.Empty(t, d.Calls())
}
