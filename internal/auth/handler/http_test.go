package handler

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"ecomconsole/backend/internal/auth/service"
	"ecomconsole/backend/internal/security"
	"ecomconsole/backend/internal/server/middleware"
	sessiondomain "ecomconsole/backend/internal/session/domain"
	userdomain "ecomconsole/backend/internal/user/domain"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[int64]*userdomain.User
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) ListRoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	return []int64{3}, nil
}

func (r *memUserRepo) TouchActivity(ctx context.Context, userID int64, at time.Time) error {
	return nil
}

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.Session
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.m[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) GetByRefreshHash(ctx context.Context, hash string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.RefreshTokenHash == hash && s.Active {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok || !s.Active || s.RefreshTokenHash != oldHash {
		return false, nil
	}
	s.RefreshTokenHash = newHash
	s.RefreshExpiresAt = expiresAt
	s.LastActivityAt = now
	return true, nil
}

func (r *memSessionRepo) Revoke(ctx context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.RefreshTokenHash == hash {
			s.Active = false
		}
	}
	return nil
}

func (r *memSessionRepo) RevokeAllByUser(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.UserID == userID {
			s.Active = false
		}
	}
	return nil
}

func (r *memSessionRepo) TouchActivity(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (r *memSessionRepo) ListActiveByUser(ctx context.Context, userID int64) ([]*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sessiondomain.Session
	for _, s := range r.m {
		if s.UserID == userID && s.Active {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSessionRepo) DeleteExpired(ctx context.Context, now, idleCutoff time.Time) (int64, error) {
	return 0, nil
}

type staticEncoder struct{}

func (staticEncoder) Claims(ctx context.Context, userID int64, roleIDs []string) map[string]string {
	return map[string]string{}
}

type recordedEvent struct {
	UserID   int64
	Action   string
	Resource string
}

type memAuditor struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (a *memAuditor) LogEvent(ctx context.Context, userID int64, action, resource, metadata string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, recordedEvent{UserID: userID, Action: action, Resource: resource})
}

func (a *memAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.events))
	for i, e := range a.events {
		out[i] = e.Action
	}
	return out
}

type handlerFixture struct {
	router   chi.Router
	sessions *memSessionRepo
	auditor  *memAuditor
	svc      *service.TokenService
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tokens := security.NewTokenProvider(key, key.Public(), "console-auth", "console-api", 2*time.Hour)
	pw, err := bcrypt.GenerateFromPassword([]byte("open sesame"), 4)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users := &memUserRepo{users: map[int64]*userdomain.User{
		1: {ID: 1, Username: "ops", Name: "Ops", PasswordHash: string(pw), Active: true},
	}}
	sessions := &memSessionRepo{m: map[string]*sessiondomain.Session{}}
	svc := service.NewTokenService(users, sessions, staticEncoder{}, tokens, security.NewHasher(4), 7*24*time.Hour)
	auditor := &memAuditor{}

	r := chi.NewRouter()
	r.Route("/api/auth", New(svc, auditor, false).Routes)
	return &handlerFixture{router: r, sessions: sessions, auditor: auditor, svc: svc}
}

func (f *handlerFixture) login(t *testing.T) (TokenResponse, *httptest.ResponseRecorder) {
	t.Helper()
	body := `{"username":"ops","password":"open sesame","deviceId":"d-1"}`
	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("login body: %v", err)
	}
	return resp, rec
}

func authedContext(r *http.Request, userID, sessionID string) *http.Request {
	claims := &security.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
		SessionID:        sessionID,
	}
	return r.WithContext(middleware.WithIdentity(r.Context(), claims, "raw"))
}

func cookieValue(rec *httptest.ResponseRecorder, name string) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func TestLoginIssuesTokensAndCookies(t *testing.T) {
	f := newHandlerFixture(t)
	resp, rec := f.login(t)

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("login must return both tokens")
	}
	if cookieValue(rec, middleware.CookieAuthToken) != resp.AccessToken {
		t.Error("auth_token cookie must carry the access token")
	}
	if cookieValue(rec, middleware.CookieRefreshToken) != resp.RefreshToken {
		t.Error("refresh_token cookie must carry the refresh token")
	}
	if got := f.auditor.actions(); len(got) != 1 || got[0] != "login" {
		t.Errorf("audit actions = %v", got)
	}
	if len(f.sessions.m) != 1 {
		t.Errorf("sessions = %d, want 1", len(f.sessions.m))
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newHandlerFixture(t)
	body := `{"username":"ops","password":"wrong"}`
	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := f.auditor.actions(); len(got) != 1 || got[0] != "login_failure" {
		t.Errorf("audit actions = %v", got)
	}
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	f := newHandlerFixture(t)
	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRefreshRotatesViaCookie(t *testing.T) {
	f := newHandlerFixture(t)
	first, _ := f.login(t)

	req := httptest.NewRequest("POST", "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CookieRefreshToken, Value: first.RefreshToken})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RefreshToken == first.RefreshToken {
		t.Error("refresh must rotate the refresh token")
	}
	if cookieValue(rec, middleware.CookieRefreshToken) != resp.RefreshToken {
		t.Error("rotated token must be set as cookie")
	}

	// The old token is spent.
	req = httptest.NewRequest("POST", "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CookieRefreshToken, Value: first.RefreshToken})
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("reused token status = %d", rec.Code)
	}
}

func TestRefreshWithoutTokenIsBadRequest(t *testing.T) {
	f := newHandlerFixture(t)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/auth/refresh", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLogoutRevokesSessionAndClearsCookies(t *testing.T) {
	f := newHandlerFixture(t)
	resp, _ := f.login(t)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CookieRefreshToken, Value: resp.RefreshToken})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Errorf("cookie %s not cleared", c.Name)
		}
	}
	active, _ := f.sessions.ListActiveByUser(context.Background(), 1)
	if len(active) != 0 {
		t.Errorf("active sessions = %d, want 0", len(active))
	}
}

func TestLogoutWithUnknownTokenSucceeds(t *testing.T) {
	f := newHandlerFixture(t)
	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CookieRefreshToken, Value: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLogoutAllRequiresIdentity(t *testing.T) {
	f := newHandlerFixture(t)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/auth/logout_all", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	f := newHandlerFixture(t)
	f.login(t)
	f.login(t)

	req := authedContext(httptest.NewRequest("POST", "/api/auth/logout_all", nil), "1", "sess-x")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	active, _ := f.sessions.ListActiveByUser(context.Background(), 1)
	if len(active) != 0 {
		t.Errorf("active sessions = %d, want 0", len(active))
	}
}

func TestListSessionsReturnsActiveOnly(t *testing.T) {
	f := newHandlerFixture(t)
	first, _ := f.login(t)
	f.login(t)
	if err := f.svc.Revoke(context.Background(), first.RefreshToken); err != nil {
		t.Fatal(err)
	}

	req := authedContext(httptest.NewRequest("GET", "/api/auth/sessions", nil), "1", "sess-x")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out []SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("sessions = %d, want 1", len(out))
	}
	if out[0].DeviceID != "d-1" {
		t.Errorf("deviceId = %q", out[0].DeviceID)
	}
	if strings.Contains(rec.Body.String(), "refreshToken") || strings.Contains(rec.Body.String(), "Hash") {
		t.Error("session listing must not expose refresh token material")
	}
}
