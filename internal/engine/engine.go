package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/annvangeert/fluisterweek/internal/course"
	"github.com/annvangeert/fluisterweek/internal/kv"
	"github.com/annvangeert/fluisterweek/internal/progress"
	"github.com/annvangeert/fluisterweek/internal/unlock"
	"github.com/annvangeert/fluisterweek/internal/webhook"
)

// ErrDayOutOfRange is returned for a day index outside the course.
var ErrDayOutOfRange = errors.New("day index out of range")

// DefaultTickInterval is how often the run loop samples the clock and
// scans for expired days.
const DefaultTickInterval = time.Minute

// Dispatcher issues outbound notifications. Implemented by
// webhook.Dispatcher (production) and testutil.CaptureDispatcher (tests).
type Dispatcher interface {
	Dispatch(ctx context.Context, dayIndex int, kind webhook.Kind, cfg webhook.Config) webhook.Outcome
}

// Engine orchestrates unlock state, progress, overrides, and
// notifications for one running view of the course.
//
// Multiple engines may run concurrently against the same external store
// (separate tabs, separate processes). There are no locks or transactions
// across instances: each mutation is a full read-modify-write of its key
// against the latest in-memory snapshot, last writer wins, and instances
// converge by consuming the store's change events.
type Engine struct {
	store      kv.Store
	base       *course.Course
	progress   *progress.Store
	dispatcher Dispatcher
	clock      Clock
	tick       time.Duration

	mu        sync.Mutex
	start     time.Time
	overrides course.Overrides
	webhooks  webhook.Config
	days      []course.Day // effective days, rebuilt on override change
	diags     map[int][]course.Diagnostic

	dispatches sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source. Tests use a manual clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTickInterval overrides the expiry-scan cadence.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tick = d }
}

// New creates an engine bound to the given store, base course, and
// dispatcher, and bootstraps persistent state:
//
//   - the start instant is loaded, or created as midnight of today on
//     first run;
//   - stored overrides are discarded when the data-version marker does
//     not match the compiled-in content version;
//   - malformed stored records degrade to empty with a warning, never an
//     error.
//
// Only store I/O failures are returned.
func New(ctx context.Context, store kv.Store, base *course.Course, dispatcher Dispatcher, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:      store,
		base:       base,
		dispatcher: dispatcher,
		clock:      SystemClock{},
		tick:       DefaultTickInterval,
		overrides:  course.Overrides{},
		diags:      map[int][]course.Diagnostic{},
	}
	for _, opt := range opts {
		opt(e)
	}

	prog, err := progress.NewStore(ctx, store)
	if err != nil {
		return nil, err
	}
	e.progress = prog

	if err := e.loadStart(ctx); err != nil {
		return nil, err
	}
	if err := e.loadOverrides(ctx); err != nil {
		return nil, err
	}
	if err := e.loadWebhooks(ctx); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.rebuildDaysLocked()
	e.mu.Unlock()

	return e, nil
}

// Run starts the engine loop: an immediate tick, then periodic ticks and
// store change events until ctx is cancelled. Must be called from at most
// one goroutine per engine.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "days", len(e.base.Days), "tick", e.tick)

	events := e.store.Watch(ctx)
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	e.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.dispatches.Wait()
			return ctx.Err()

		case <-ticker.C:
			e.Tick(ctx)

		case ev, ok := <-events:
			if !ok {
				slog.Info("engine stopping: store closed")
				e.dispatches.Wait()
				return nil
			}
			e.applyEvent(ev)
		}
	}
}

// Tick recomputes unlock state and runs the expiry scan once.
//
// For every day that has been unlocked for at least one full day-interval
// with no completion and no prior notification, a not-watched
// notification is dispatched and the sticky flag is set unconditionally:
// the attempt happens at most once regardless of dispatch outcome.
//
// Idempotent: re-running against the same state does nothing.
func (e *Engine) Tick(ctx context.Context) {
	now := e.clock.Now()

	e.mu.Lock()
	start := e.start
	total := len(e.days)
	cfg := e.webhooks
	e.mu.Unlock()

	for i := 0; i < total; i++ {
		if !unlock.Expired(start, i, now) {
			continue
		}
		entry, _ := e.progress.Get(i)
		if !entry.CompletedAt.IsZero() || !entry.ExpiryNotifiedAt.IsZero() {
			continue
		}

		e.dispatchAsync(i, webhook.KindNotWatched, cfg)
		if err := e.progress.MarkExpiryNotified(ctx, i, now); err != nil {
			// Log and continue: next tick retries the persist. The flag is
			// still unset, so in the worst case the endpoint sees a second
			// attempt; the contract promises at-most-once per persisted
			// flag, not exactly-once delivery.
			slog.Error("engine: persist expiry flag", "day", i+1, "error", err)
		}
	}
}

// UnlockedCount returns how many days are currently accessible.
func (e *Engine) UnlockedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return unlock.Count(e.start, e.clock.Now(), len(e.days))
}

// ToggleCompleted flips a day's completion state.
//
// Completing sets completedAt to now and dispatches a watched
// notification, fire-and-forget. Un-completing clears completedAt only;
// no notification fires and a previously set expiry flag stays set.
// Returns whether the day is completed after the toggle.
func (e *Engine) ToggleCompleted(ctx context.Context, dayIndex int) (bool, error) {
	if err := e.checkDay(dayIndex); err != nil {
		return false, err
	}

	entry, _ := e.progress.Get(dayIndex)
	if !entry.CompletedAt.IsZero() {
		if err := e.progress.ClearCompleted(ctx, dayIndex); err != nil {
			return true, err
		}
		return false, nil
	}

	if err := e.progress.SetCompleted(ctx, dayIndex, e.clock.Now()); err != nil {
		return false, err
	}

	e.mu.Lock()
	cfg := e.webhooks
	e.mu.Unlock()
	e.dispatchAsync(dayIndex, webhook.KindWatched, cfg)
	return true, nil
}

// Snapshot returns every day's status for rendering.
func (e *Engine) Snapshot() []DayStatus {
	now := e.clock.Now()

	e.mu.Lock()
	start := e.start
	days := make([]course.Day, len(e.days))
	copy(days, e.days)
	e.mu.Unlock()

	unlocked := unlock.Count(start, now, len(days))
	statuses := make([]DayStatus, len(days))
	for i, day := range days {
		entry, _ := e.progress.Get(i)
		statuses[i] = DayStatus{
			Index:            i,
			State:            stateFor(i, unlocked, entry),
			UnlocksAt:        unlock.At(start, i),
			CompletedAt:      entry.CompletedAt,
			ExpiryNotifiedAt: entry.ExpiryNotifiedAt,
			Content:          day,
		}
	}
	return statuses
}

// SaveOverride sanitizes and persists an override for one day, stamps the
// data-version marker, and rebuilds the effective days. The returned
// diagnostics describe corrections applied to the extra exercises.
func (e *Engine) SaveOverride(ctx context.Context, dayIndex int, ov course.Override) ([]course.Diagnostic, error) {
	if err := e.checkDay(dayIndex); err != nil {
		return nil, err
	}

	var diags []course.Diagnostic
	if ov.ExtraExercises != nil {
		sanitized, sanDiags := course.SanitizeExercises(ov.ExtraExercises, course.MaxExtraExercises)
		diags = sanDiags
		// An empty sanitized list stores no extras override at all, so the
		// base day's exercises show again.
		ov.ExtraExercises = course.NewRawExercises(sanitized)
	}

	e.mu.Lock()
	e.overrides[dayIndex] = ov
	data, err := course.MarshalOverrides(e.overrides)
	if err != nil {
		e.mu.Unlock()
		return diags, err
	}
	e.rebuildDaysLocked()
	e.mu.Unlock()

	if err := e.store.Put(ctx, kv.KeyOverrides, data); err != nil {
		return diags, fmt.Errorf("persist overrides: %w", err)
	}
	if err := e.store.Put(ctx, kv.KeyDataVersion, []byte(course.DataVersion)); err != nil {
		return diags, fmt.Errorf("persist data version: %w", err)
	}
	return diags, nil
}

// ResetDay removes a day's override, restoring the base content.
// Progress history is left untouched.
func (e *Engine) ResetDay(ctx context.Context, dayIndex int) error {
	if err := e.checkDay(dayIndex); err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.overrides, dayIndex)
	data, err := course.MarshalOverrides(e.overrides)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.rebuildDaysLocked()
	e.mu.Unlock()

	if err := e.store.Put(ctx, kv.KeyOverrides, data); err != nil {
		return fmt.Errorf("persist overrides: %w", err)
	}
	return nil
}

// SetWebhooks persists the notification endpoints.
func (e *Engine) SetWebhooks(ctx context.Context, cfg webhook.Config) error {
	data, err := marshalConfig(cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.webhooks = cfg
	e.mu.Unlock()

	if err := e.store.Put(ctx, kv.KeyWebhooks, data); err != nil {
		return fmt.Errorf("persist webhooks: %w", err)
	}
	return nil
}

// Webhooks returns the current notification config.
func (e *Engine) Webhooks() webhook.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.webhooks
}

// TestWebhook fires one notification attempt immediately, synchronously,
// with the same payload a real transition would send. Used by the admin
// surface to verify an endpoint.
func (e *Engine) TestWebhook(ctx context.Context, dayIndex int, kind webhook.Kind) (webhook.Outcome, error) {
	if err := e.checkDay(dayIndex); err != nil {
		return "", err
	}

	e.mu.Lock()
	cfg := e.webhooks
	e.mu.Unlock()
	return e.dispatcher.Dispatch(ctx, dayIndex, kind, cfg), nil
}

// Start returns the course start instant.
func (e *Engine) Start() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.start
}

// Diagnostics returns the merge diagnostics recorded for a day's current
// override, nil when the merge was clean.
func (e *Engine) Diagnostics(dayIndex int) []course.Diagnostic {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.diags[dayIndex]
}

// WaitDispatches blocks until in-flight notification attempts settle.
// Used by tests and by Run during shutdown.
func (e *Engine) WaitDispatches() {
	e.dispatches.Wait()
}

// applyEvent resynchronizes in-memory caches from another instance's
// write (or an echo of our own; both are idempotent). Malformed payloads
// are logged and ignored.
func (e *Engine) applyEvent(ev kv.Event) {
	slog.Debug("engine: store event", "key", ev.Key)

	switch ev.Key {
	case kv.KeyProgress:
		e.progress.Replace(ev.Value)

	case kv.KeyOverrides:
		ovs, err := course.ParseOverrides(ev.Value)
		if err != nil {
			slog.Warn("engine: malformed overrides event ignored", "error", err)
			return
		}
		e.mu.Lock()
		e.overrides = ovs
		e.rebuildDaysLocked()
		e.mu.Unlock()

	case kv.KeyWebhooks:
		cfg := webhook.ParseConfig(ev.Value)
		e.mu.Lock()
		e.webhooks = cfg
		e.mu.Unlock()

	case kv.KeyStart:
		start, ok := parseStart(ev.Value)
		if !ok {
			slog.Warn("engine: malformed start event ignored")
			return
		}
		e.mu.Lock()
		e.start = start
		e.mu.Unlock()

	case kv.KeyDataVersion:
		// Informational; the gate only runs at startup.

	default:
		slog.Debug("engine: ignoring unknown key", "key", ev.Key)
	}
}

// dispatchAsync fires a notification without blocking the caller. The
// outcome is captured for logging but never awaited: a slow or hanging
// endpoint must not stall unlock-state rendering or other days.
func (e *Engine) dispatchAsync(dayIndex int, kind webhook.Kind, cfg webhook.Config) {
	e.dispatches.Add(1)
	go func() {
		defer e.dispatches.Done()
		// Deliberately not the run-loop context: the attempt settles on the
		// dispatcher's own timeout even when the engine is shutting down.
		outcome := e.dispatcher.Dispatch(context.Background(), dayIndex, kind, cfg)
		if outcome == webhook.OutcomeFailed {
			slog.Warn("engine: notification attempt failed, not retrying",
				"day", dayIndex+1, "kind", kind)
			return
		}
		slog.Debug("engine: notification settled",
			"day", dayIndex+1, "kind", kind, "outcome", string(outcome))
	}()
}

func (e *Engine) checkDay(dayIndex int) error {
	if dayIndex < 0 || dayIndex >= len(e.base.Days) {
		return fmt.Errorf("day %d: %w", dayIndex+1, ErrDayOutOfRange)
	}
	return nil
}

// loadStart reads the start instant, creating it on first run as midnight
// of the current local day. A malformed stored value is treated as absent.
func (e *Engine) loadStart(ctx context.Context) error {
	raw, ok, err := e.store.Get(ctx, kv.KeyStart)
	if err != nil {
		return fmt.Errorf("load start instant: %w", err)
	}
	if ok {
		if start, parsed := parseStart(raw); parsed {
			e.start = start
			return nil
		}
		slog.Warn("engine: malformed start instant, recreating", "raw", string(raw))
	}

	start := unlock.StartOfDay(e.clock.Now())
	value := strconv.FormatInt(start.UnixMilli(), 10)
	if err := e.store.Put(ctx, kv.KeyStart, []byte(value)); err != nil {
		return fmt.Errorf("persist start instant: %w", err)
	}
	e.start = start
	slog.Info("engine: course started", "start", start)
	return nil
}

// loadOverrides applies the data-version gate, then loads stored
// overrides leniently.
func (e *Engine) loadOverrides(ctx context.Context) error {
	raw, ok, err := e.store.Get(ctx, kv.KeyDataVersion)
	if err != nil {
		return fmt.Errorf("load data version: %w", err)
	}
	if !ok || string(raw) != course.DataVersion {
		if ok {
			slog.Info("engine: data version changed, discarding overrides",
				"stored", string(raw), "compiled", course.DataVersion)
		}
		if err := e.store.Delete(ctx, kv.KeyOverrides); err != nil {
			return fmt.Errorf("discard overrides: %w", err)
		}
		if err := e.store.Put(ctx, kv.KeyDataVersion, []byte(course.DataVersion)); err != nil {
			return fmt.Errorf("persist data version: %w", err)
		}
		return nil
	}

	rawOvs, ok, err := e.store.Get(ctx, kv.KeyOverrides)
	if err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}
	if !ok {
		return nil
	}
	ovs, err := course.ParseOverrides(rawOvs)
	if err != nil {
		slog.Warn("engine: malformed stored overrides ignored", "error", err)
		return nil
	}
	e.overrides = ovs
	return nil
}

func (e *Engine) loadWebhooks(ctx context.Context) error {
	raw, ok, err := e.store.Get(ctx, kv.KeyWebhooks)
	if err != nil {
		return fmt.Errorf("load webhooks: %w", err)
	}
	if ok {
		e.webhooks = webhook.ParseConfig(raw)
	}
	return nil
}

// rebuildDaysLocked recomputes the effective days from base + overrides.
// Callers must hold e.mu.
func (e *Engine) rebuildDaysLocked() {
	days := make([]course.Day, len(e.base.Days))
	diags := make(map[int][]course.Diagnostic, len(e.base.Days))
	for i, base := range e.base.Days {
		merged, dayDiags := course.Merge(base, e.overrides[i])
		days[i] = merged
		if len(dayDiags) > 0 {
			diags[i] = dayDiags
			for _, d := range dayDiags {
				slog.Warn("engine: override corrected at merge", "day", i+1, "diagnostic", d.String())
			}
		}
	}
	e.days = days
	e.diags = diags
}

func parseStart(raw []byte) (time.Time, bool) {
	ms, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func marshalConfig(cfg webhook.Config) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal webhooks: %w", err)
	}
	return data, nil
}
