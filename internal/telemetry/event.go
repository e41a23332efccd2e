// Package telemetry defines the auth subsystem's event stream: one Event per
// HTTP request plus security-relevant occurrences (denials, degraded
// decisions, refresh rotations). Emitters are best-effort; callers log and
// ignore errors.
package telemetry

import (
	"context"
	"encoding/json"
	"time"
)

// Event types emitted by the middleware pipeline and the auth handler.
const (
	EventHTTPRequest    = "http_request"
	EventAuthzDenied    = "authz_denied"
	EventAuthzDegraded  = "authz_degraded"
	EventTokenExtended  = "token_extended"
	EventTokenRefreshed = "token_refreshed"
)

// Event is a single telemetry record. Metadata is event-type-specific JSON.
type Event struct {
	UserID    string          `json:"userId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Emitter emits telemetry events (e.g. to Kafka or OTel logs).
type Emitter interface {
	// Emit sends a single event. Implementations may block briefly; call from
	// a goroutine if needed. Callers typically log and ignore errors.
	Emit(ctx context.Context, event *Event) error
}

// Multi fans an event out to several emitters; the first error wins but all
// emitters are attempted.
type Multi []Emitter

// Emit sends the event to every emitter in order.
func (m Multi) Emit(ctx context.Context, event *Event) error {
	var first error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
