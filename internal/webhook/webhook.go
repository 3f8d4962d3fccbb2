// Package webhook issues best-effort outbound notifications when a day is
// completed or expires uncompleted.
//
// The dispatcher makes exactly one attempt per invocation and never
// returns an error: transport failures come back as OutcomeFailed and are
// not retried. Callers that need reliability must re-invoke on a later
// tick; for not-watched notifications the sticky per-day flag means a
// missed attempt is never retried, by design.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Kind is the notification event kind.
type Kind string

const (
	// KindWatched fires when the user marks a day completed.
	KindWatched Kind = "watched"
	// KindNotWatched fires when a day expires without completion.
	KindNotWatched Kind = "notWatched"
)

// Config maps each event kind to an optional destination endpoint.
// An absent endpoint disables notifications of that kind; it is not an
// error.
type Config struct {
	Watched    string `json:"watched,omitempty"`
	NotWatched string `json:"notWatched,omitempty"`
}

// EndpointFor returns the configured endpoint for a kind, "" when unset.
func (c Config) EndpointFor(kind Kind) string {
	switch kind {
	case KindWatched:
		return c.Watched
	case KindNotWatched:
		return c.NotWatched
	default:
		return ""
	}
}

// ParseConfig decodes a stored config. Malformed input degrades to the
// zero config (all notifications disabled) with a warning.
func ParseConfig(raw []byte) Config {
	if len(raw) == 0 {
		return Config{}
	}
	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		slog.Warn("webhook: malformed stored config, notifications disabled", "error", err)
		return Config{}
	}
	return c
}

// Outcome reports what a dispatch attempt did.
type Outcome string

const (
	// OutcomeSent means the endpoint accepted the connection and a
	// response came back. The response status is not interpreted.
	OutcomeSent Outcome = "sent"
	// OutcomeSkippedNoEndpoint means no endpoint is configured for the
	// kind; no network attempt was made.
	OutcomeSkippedNoEndpoint Outcome = "skipped-no-endpoint"
	// OutcomeFailed means the single attempt failed at the transport
	// level. It is not retried.
	OutcomeFailed Outcome = "failed"
)

// payload is the JSON body POSTed to the endpoint.
type payload struct {
	Day         int    `json:"day"` // 1-based for humans and spreadsheets
	Type        Kind   `json:"type"`
	TriggeredAt string `json:"triggeredAt"` // RFC 3339
}

// defaultTimeout bounds a dispatch attempt when the caller's context
// carries no deadline. A hanging endpoint must never stall the engine.
const defaultTimeout = 10 * time.Second

// Dispatcher posts notifications. Stateless apart from its HTTP client;
// safe for concurrent use.
type Dispatcher struct {
	client *http.Client
	now    func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient overrides the HTTP client (tests, custom transports).
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithNow overrides the wall clock used for the triggeredAt field.
func WithNow(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher with a timeout-bounded HTTP client.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client: &http.Client{Timeout: defaultTimeout},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch makes at most one notification attempt for the given day and
// kind. It never returns an error; the outcome says what happened.
func (d *Dispatcher) Dispatch(ctx context.Context, dayIndex int, kind Kind, cfg Config) Outcome {
	endpoint := cfg.EndpointFor(kind)
	if endpoint == "" {
		return OutcomeSkippedNoEndpoint
	}

	deliveryID := uuid.Must(uuid.NewV7()).String()
	body, err := json.Marshal(payload{
		Day:         dayIndex + 1,
		Type:        kind,
		TriggeredAt: d.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		// Marshalling a flat struct cannot fail; kept for completeness.
		slog.Error("webhook: marshal payload", "delivery_id", deliveryID, "error", err)
		return OutcomeFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		slog.Warn("webhook: bad endpoint",
			"delivery_id", deliveryID,
			"kind", kind,
			"day", dayIndex+1,
			"error", err,
		)
		return OutcomeFailed
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", deliveryID)

	resp, err := d.client.Do(req)
	if err != nil {
		slog.Warn("webhook: dispatch failed",
			"delivery_id", deliveryID,
			"kind", kind,
			"day", dayIndex+1,
			"error", err,
		)
		return OutcomeFailed
	}
	// Response body is not consumed; drain it so the connection is reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	slog.Debug("webhook: dispatched",
		"delivery_id", deliveryID,
		"kind", kind,
		"day", dayIndex+1,
		"status", resp.StatusCode,
	)
	return OutcomeSent
}
