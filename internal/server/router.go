// Package server assembles the HTTP router and the request middleware
// pipeline.
package server

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"ecomconsole/backend/internal/audit"
	authhandler "ecomconsole/backend/internal/auth/handler"
	"ecomconsole/backend/internal/auth/service"
	healthhandler "ecomconsole/backend/internal/health/handler"
	"ecomconsole/backend/internal/security"
	"ecomconsole/backend/internal/server/middleware"
	"ecomconsole/backend/internal/telemetry"
)

// Deps carries everything the router wires together.
type Deps struct {
	Tokens        *security.TokenProvider
	TokenService  *service.TokenService
	Auth          *authhandler.Handler
	Health        *healthhandler.Handler
	AdminRoleIDs  []string
	ExtendWindow  time.Duration
	RefreshWindow time.Duration
	Tracer        trace.Tracer
	Emitter       telemetry.Emitter
	Auditor       audit.AuditLogger
}

// anonymousPaths are reachable without a verified access token. Everything
// else under /api is subject to the authorization gate.
var anonymousPaths = map[string]bool{
	"/healthz":          true,
	"/readyz":           true,
	"/api/auth/login":   true,
	"/api/auth/refresh": true,
	"/api/auth/logout":  true,
}

func isAnonymous(r *http.Request) bool {
	return anonymousPaths[strings.TrimSuffix(r.URL.Path, "/")]
}

// NewRouter builds the full middleware pipeline. Order is a contract:
// Authenticate parses the identity, RequestTelemetry records the request with
// that identity attached, the gate decides, and SlidingSession renews
// whatever the gate let through.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(clientIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", d.Health.Live)
	r.Get("/readyz", d.Health.Ready)

	gate := middleware.NewGate(d.AdminRoleIDs, isAnonymous, d.Emitter, d.Auditor)
	sliding := middleware.NewSlidingSession(d.TokenService, d.ExtendWindow, d.RefreshWindow, d.Emitter)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(d.Tokens))
		r.Use(middleware.RequestTelemetry(d.Tracer, d.Emitter))
		r.Use(gate.Middleware)
		r.Use(sliding.Middleware)

		r.Route("/auth", d.Auth.Routes)
	})
	return r
}

// clientIP stores the (RealIP-rewritten) remote address for audit writes.
func clientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(audit.ContextWithClientIP(r.Context(), ip)))
	})
}
