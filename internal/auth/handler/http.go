// Package handler exposes the auth endpoints: login, refresh, logout,
// logout_all and session listing.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ecomconsole/backend/internal/audit"
	"ecomconsole/backend/internal/auth/service"
	"ecomconsole/backend/internal/server/middleware"
	sessiondomain "ecomconsole/backend/internal/session/domain"
)

const maxAuthBodySize = 16 * 1024

type Handler struct {
	svc     *service.TokenService
	auditor audit.AuditLogger
	// secureCookies controls the Secure flag on auth cookies. Off only for
	// local development over plain HTTP.
	secureCookies bool
}

func New(svc *service.TokenService, auditor audit.AuditLogger, secureCookies bool) *Handler {
	return &Handler{svc: svc, auditor: auditor, secureCookies: secureCookies}
}

// Routes mounts the auth endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)
	r.Post("/logout_all", h.LogoutAll)
	r.Get("/sessions", h.ListSessions)
}

type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	DeviceID   string `json:"deviceId"`
	DeviceInfo string `json:"deviceInfo"`
}

type TokenResponse struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

type SessionResponse struct {
	ID             string    `json:"id"`
	DeviceID       string    `json:"deviceId,omitempty"`
	DeviceInfo     string    `json:"deviceInfo,omitempty"`
	IPAddress      string    `json:"ipAddress,omitempty"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r)
	if !ok {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	pair, err := h.svc.Login(r.Context(), req.Username, req.Password, req.DeviceID, req.DeviceInfo, audit.ClientIP(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.auditor.LogEvent(r.Context(), 0, audit.ActionLoginFailure, "session",
				fmt.Sprintf(`{"username":%q}`, req.Username))
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.setAuthCookies(w, pair)
	h.auditor.LogEvent(r.Context(), pair.UserID, audit.ActionLogin, "session",
		fmt.Sprintf(`{"sessionId":%q}`, pair.SessionID))
	writeJSON(w, http.StatusOK, tokenResponse(pair))
}

// Refresh handles POST /api/auth/refresh. The refresh token is read from the
// refresh_token cookie, the X-Refresh-Token header or the refresh_token form
// field, in that order.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractRefreshToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}
	pair, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	h.setAuthCookies(w, pair)
	h.auditor.LogEvent(r.Context(), pair.UserID, audit.ActionTokenRefreshed, "session",
		fmt.Sprintf(`{"sessionId":%q}`, pair.SessionID))
	writeJSON(w, http.StatusOK, tokenResponse(pair))
}

// Logout handles POST /api/auth/logout. It revokes the presented refresh
// token and clears the auth cookies. Always succeeds: logging out with an
// unknown or missing token is not an error.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.ExtractRefreshToken(r); token != "" {
		if err := h.svc.Revoke(r.Context(), token); err != nil {
			writeError(w, http.StatusInternalServerError, "logout failed")
			return
		}
	}
	h.clearAuthCookies(w)
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		h.auditor.LogEvent(r.Context(), claims.UserID(), audit.ActionLogout, "session",
			fmt.Sprintf(`{"sessionId":%q}`, claims.SessionID))
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll handles POST /api/auth/logout_all. It revokes every active
// session belonging to the authenticated user.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := h.svc.RevokeAllForUser(r.Context(), claims.UserID()); err != nil {
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	h.clearAuthCookies(w)
	h.auditor.LogEvent(r.Context(), claims.UserID(), audit.ActionLogoutAll, "session", "")
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /api/auth/sessions. It returns the authenticated
// user's active sessions, refresh token hashes excluded.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	sessions, err := h.svc.ListSessions(r.Context(), claims.UserID())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	out := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		out[i] = sessionResponse(s)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) setAuthCookies(w http.ResponseWriter, pair *service.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieAuthToken,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieRefreshToken,
		Value:    pair.RefreshToken,
		Path:     "/",
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.CookieAuthToken, middleware.CookieRefreshToken} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func tokenResponse(pair *service.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func sessionResponse(s *sessiondomain.Session) SessionResponse {
	return SessionResponse{
		ID:             s.ID,
		DeviceID:       s.DeviceID,
		DeviceInfo:     s.DeviceInfo,
		IPAddress:      s.IPAddress,
		LastActivityAt: s.LastActivityAt,
		CreatedAt:      s.CreatedAt,
	}
}

func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxAuthBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return v, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
