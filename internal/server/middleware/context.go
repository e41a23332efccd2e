// Package middleware implements the per-request auth pipeline. Stage order is
// a contract (see server.NewRouter): Authenticate, then RequestTelemetry, then
// the authorization gate, then SlidingSession. Each stage documents what it
// expects on the request context and what it leaves there.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"ecomconsole/backend/internal/security"
)

// Token transports, in lookup order.
const (
	CookieAuthToken    = "auth_token"
	CookieRefreshToken = "refresh_token"
	HeaderRefreshToken = "X-Refresh-Token"
	FormRefreshToken   = "refresh_token"
)

const bearerPrefix = "bearer "

type contextKey struct{ name string }

var (
	claimsKey   = contextKey{"access_claims"}
	rawTokenKey = contextKey{"raw_token"}
)

// WithIdentity returns a context carrying the verified access claims and the
// raw token they were parsed from.
func WithIdentity(ctx context.Context, claims *security.AccessClaims, rawToken string) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	return context.WithValue(ctx, rawTokenKey, rawToken)
}

// ClaimsFromContext returns the verified access claims, or nil for anonymous
// requests.
func ClaimsFromContext(ctx context.Context) *security.AccessClaims {
	claims, _ := ctx.Value(claimsKey).(*security.AccessClaims)
	return claims
}

// RawTokenFromContext returns the raw access token the claims came from, or "".
func RawTokenFromContext(ctx context.Context) string {
	raw, _ := ctx.Value(rawTokenKey).(string)
	return raw
}

// ExtractAccessToken returns the access token from the Authorization header
// (Bearer scheme) or, failing that, the auth_token cookie. Returns "" when
// neither transport carries a token.
func ExtractAccessToken(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("Authorization")); len(v) >= len(bearerPrefix) &&
		strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		if token := strings.TrimSpace(v[len(bearerPrefix):]); token != "" {
			return token
		}
	}
	if c, err := r.Cookie(CookieAuthToken); err == nil {
		return c.Value
	}
	return ""
}

// ExtractRefreshToken locates the refresh token with the fixed transport
// priority: refresh_token cookie, X-Refresh-Token header, refresh_token form
// field. Returns "" when no transport carries one.
func ExtractRefreshToken(r *http.Request) string {
	if c, err := r.Cookie(CookieRefreshToken); err == nil && c.Value != "" {
		return c.Value
	}
	if v := strings.TrimSpace(r.Header.Get(HeaderRefreshToken)); v != "" {
		return v
	}
	return r.PostFormValue(FormRefreshToken)
}
