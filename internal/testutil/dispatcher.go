package testutil

import (
	"context"
	"sync"

	"github.com/annvangeert/fluisterweek/internal/webhook"
)

// DispatchCall records one notification attempt seen by a
// CaptureDispatcher.
type DispatchCall struct {
	DayIndex int
	Kind     webhook.Kind
	Config   webhook.Config
}

// CaptureDispatcher records dispatch calls instead of making HTTP
// requests. It satisfies engine.Dispatcher.
//
// Thread-safety: all methods are safe for concurrent use; the engine
// dispatches from short-lived goroutines.
type CaptureDispatcher struct {
	mu      sync.Mutex
	calls   []DispatchCall
	outcome webhook.Outcome
}

// NewCaptureDispatcher creates a dispatcher that reports every attempt
// as sent.
func NewCaptureDispatcher() *CaptureDispatcher {
	return &CaptureDispatcher{outcome: webhook.OutcomeSent}
}

// SetOutcome changes what future Dispatch calls report.
func (d *CaptureDispatcher) SetOutcome(o webhook.Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outcome = o
}

// Dispatch records the call and returns the configured outcome.
func (d *CaptureDispatcher) Dispatch(_ context.Context, dayIndex int, kind webhook.Kind, cfg webhook.Config) webhook.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, DispatchCall{DayIndex: dayIndex, Kind: kind, Config: cfg})
	return d.outcome
}

// Calls returns a copy of every recorded attempt, in order.
func (d *CaptureDispatcher) Calls() []DispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DispatchCall, len(d.calls))
	copy(out, d.calls)
	return out
}

// CallsOf returns the recorded attempts of one kind.
func (d *CaptureDispatcher) CallsOf(kind webhook.Kind) []DispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []DispatchCall
	for _, c := range d.calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets all recorded attempts.
func (d *CaptureDispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}
