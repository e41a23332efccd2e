package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ecomconsole/backend/internal/telemetry"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for
// http_request events.
type httpRequestMetadata struct {
	Path       string `json:"path"`
	Method     string `json:"method"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// RequestTelemetry wraps each request in a span and emits one http_request
// event after it completes. Best-effort: emit failures are logged, never
// surfaced. A nil emitter disables events; spans still record.
func RequestTelemetry(tracer trace.Tracer, emitter telemetry.Emitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			span.SetAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.Int("http.response.status_code", status),
			)
			span.End()

			if emitter == nil {
				return
			}
			var userID, sessionID string
			if claims := ClaimsFromContext(r.Context()); claims != nil {
				userID = claims.Subject
				sessionID = claims.SessionID
			}
			meta, _ := json.Marshal(httpRequestMetadata{
				Path:       r.URL.Path,
				Method:     r.Method,
				StatusCode: status,
				DurationMs: time.Since(start).Milliseconds(),
				ClientIP:   r.RemoteAddr,
			})
			emitAsync(emitter, &telemetry.Event{
				UserID:    userID,
				SessionID: sessionID,
				EventType: telemetry.EventHTTPRequest,
				Source:    "http_middleware",
				Metadata:  meta,
			})
		})
	}
}

// emitAsync emits the event from a goroutine with its own timeout so the
// response is never held up by a slow telemetry backend.
func emitAsync(emitter telemetry.Emitter, event *telemetry.Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil {
			log.Printf("telemetry: emit %s failed: %v", event.EventType, err)
		}
	}()
}
