package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"ecomconsole/backend/internal/auth/service"
	"ecomconsole/backend/internal/security"
	"ecomconsole/backend/internal/telemetry"
)

// Renewal response headers. Clients that see them swap tokens transparently.
const (
	HeaderExtendedToken   = "X-Extended-Token"
	HeaderNewAccessToken  = "X-New-Access-Token"
	HeaderNewRefreshToken = "X-New-Refresh-Token"
)

// renewTimeout bounds every renewal-path store call so a slow store can never
// hold up the primary response.
const renewTimeout = 5 * time.Second

// SlidingSession implements sliding expiration: requests arriving in the
// token's last half hour get a silently extended access token; requests in
// the last five minutes get a full refresh-token rotation. Everything here is
// best-effort; the request itself is never failed by this stage.
type SlidingSession struct {
	tokenSvc      *service.TokenService
	extendWindow  time.Duration // remaining lifetime at or below which extension fires
	refreshWindow time.Duration // remaining lifetime at or below which rotation fires instead
	emitter       telemetry.Emitter
	now           func() time.Time
}

// NewSlidingSession returns the sliding-expiration stage. extendWindow and
// refreshWindow are typically 30m and 5m; refreshWindow must be below
// extendWindow.
func NewSlidingSession(tokenSvc *service.TokenService, extendWindow, refreshWindow time.Duration, emitter telemetry.Emitter) *SlidingSession {
	return &SlidingSession{
		tokenSvc:      tokenSvc,
		extendWindow:  extendWindow,
		refreshWindow: refreshWindow,
		emitter:       emitter,
		now:           time.Now,
	}
}

// Middleware runs the renewal decision before the handler so renewal headers
// are set before the response body is written.
func (s *SlidingSession) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.renew(w, r)
		next.ServeHTTP(w, r)
	})
}

// renew applies one of extend / refresh / no-op based on remaining token
// lifetime, then touches activity. The token is re-extracted and parsed
// unverified: signature validation already happened upstream, and an expired
// token (which the verified parse would have rejected) must still be seen
// here so the skip branch can apply.
func (s *SlidingSession) renew(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("sliding: renewal panic for %s %s: %v", r.Method, r.URL.Path, rec)
		}
	}()

	raw := ExtractAccessToken(r)
	if raw == "" {
		return
	}
	claims, err := security.ParseUnverified(raw)
	if err != nil || claims.ExpiresAt == nil {
		return
	}
	now := s.now()
	remaining := claims.ExpiresAt.Time.Sub(now)
	if remaining <= 0 {
		// Already expired: no renewal and no activity touch.
		return
	}

	userID := claims.UserID()
	switch {
	case remaining <= s.refreshWindow:
		s.refresh(w, r, claims)
	case remaining <= s.extendWindow:
		s.extend(w, r, userID, claims)
	}

	// Touched on every branch including no-op, as long as the token is live.
	ctx, cancel := context.WithTimeout(r.Context(), renewTimeout)
	defer cancel()
	if err := s.tokenSvc.TouchActivity(ctx, claims.SessionID, userID); err != nil {
		log.Printf("sliding: activity touch for user %d failed: %v", userID, err)
	}
}

func (s *SlidingSession) extend(w http.ResponseWriter, r *http.Request, userID int64, claims *security.AccessClaims) {
	ctx, cancel := context.WithTimeout(r.Context(), renewTimeout)
	defer cancel()
	token, _, err := s.tokenSvc.ExtendAccess(ctx, userID, claims.SessionID)
	if err != nil {
		log.Printf("sliding: extend for user %d failed: %v", userID, err)
		return
	}
	w.Header().Set(HeaderExtendedToken, token)
	s.emit(claims, telemetry.EventTokenExtended, r)
}

func (s *SlidingSession) refresh(w http.ResponseWriter, r *http.Request, claims *security.AccessClaims) {
	refreshToken := ExtractRefreshToken(r)
	if refreshToken == "" {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), renewTimeout)
	defer cancel()
	pair, err := s.tokenSvc.Refresh(ctx, refreshToken)
	if err != nil {
		log.Printf("sliding: refresh for user %d failed: %v", claims.UserID(), err)
		return
	}
	w.Header().Set(HeaderNewAccessToken, pair.AccessToken)
	w.Header().Set(HeaderNewRefreshToken, pair.RefreshToken)
	s.emit(claims, telemetry.EventTokenRefreshed, r)
}

func (s *SlidingSession) emit(claims *security.AccessClaims, eventType string, r *http.Request) {
	if s.emitter == nil {
		return
	}
	meta, _ := json.Marshal(map[string]string{"path": r.URL.Path, "method": r.Method})
	emitAsync(s.emitter, &telemetry.Event{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		EventType: eventType,
		Source:    "sliding_session",
		Metadata:  meta,
	})
}
