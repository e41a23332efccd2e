// Package service implements the token lifecycle: login, sliding extension,
// refresh-token rotation, revocation, and session cleanup.
package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"ecomconsole/backend/internal/security"
	sessiondomain "ecomconsole/backend/internal/session/domain"
	userdomain "ecomconsole/backend/internal/user/domain"
)

// Sentinel errors for the token service; the HTTP handler maps them to status codes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken covers malformed, unknown, expired, revoked, and
	// idle-too-long refresh tokens, and the loser of a concurrent rotation.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// UserRepo is the minimal user repository needed by the token service.
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (*userdomain.User, error)
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	ListRoleIDs(ctx context.Context, userID int64) ([]int64, error)
	TouchActivity(ctx context.Context, userID int64, at time.Time) error
}

// SessionRepo is the minimal session repository needed by the token service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByRefreshHash(ctx context.Context, hash string) (*sessiondomain.Session, error)
	Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt, now time.Time) (bool, error)
	Revoke(ctx context.Context, hash string) error
	RevokeAllByUser(ctx context.Context, userID int64) error
	TouchActivity(ctx context.Context, id string, at time.Time) error
	ListActiveByUser(ctx context.Context, userID int64) ([]*sessiondomain.Session, error)
	DeleteExpired(ctx context.Context, now, idleCutoff time.Time) (int64, error)
}

// PermissionEncoder produces the menu-permission claims for a user's roles.
type PermissionEncoder interface {
	Claims(ctx context.Context, userID int64, roleIDs []string) map[string]string
}

// TokenPair is the outcome of Login and Refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	UserID           int64
	SessionID        string
}

// TokenService orchestrates the session store, permission encoder, and token
// provider. It is a stateless singleton; all mutable state is persisted.
type TokenService struct {
	users      UserRepo
	sessions   SessionRepo
	perms      PermissionEncoder
	tokens     *security.TokenProvider
	hasher     *security.Hasher
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService returns a TokenService with the given dependencies.
// refreshTTL is the lifetime granted to each new or rotated refresh token.
func NewTokenService(users UserRepo, sessions SessionRepo, perms PermissionEncoder, tokens *security.TokenProvider, hasher *security.Hasher, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		users:      users,
		sessions:   sessions,
		perms:      perms,
		tokens:     tokens,
		hasher:     hasher,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Login authenticates username/password, creates a session for the device,
// and returns a fresh access/refresh pair.
func (s *TokenService) Login(ctx context.Context, username, password, deviceID, deviceInfo, ip string) (*TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	refreshToken, err := security.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	sess, err := s.CreateSession(ctx, user.ID, refreshToken, deviceID, deviceInfo, ip)
	if err != nil {
		return nil, err
	}
	accessToken, accessExp, err := s.mintAccess(ctx, user, sess.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: sess.RefreshExpiresAt,
		UserID:           user.ID,
		SessionID:        sess.ID,
	}, nil
}

// CreateSession inserts an active session holding the hash of refreshToken,
// expiring after the configured refresh TTL. deviceID, deviceInfo, and ip are
// optional metadata.
func (s *TokenService) CreateSession(ctx context.Context, userID int64, refreshToken, deviceID, deviceInfo, ip string) (*sessiondomain.Session, error) {
	now := s.now().UTC()
	sess := &sessiondomain.Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		RefreshExpiresAt: now.Add(s.refreshTTL),
		DeviceID:         deviceID,
		DeviceInfo:       deviceInfo,
		IPAddress:        ip,
		LastActivityAt:   now,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Refresh validates refreshToken, rotates it atomically, and returns a new
// access/refresh pair. Of two concurrent calls presenting the same token,
// exactly one succeeds; the other gets ErrInvalidRefreshToken.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := security.ValidateRefreshTokenFormat(refreshToken); err != nil {
		return nil, ErrInvalidRefreshToken
	}
	oldHash := security.HashRefreshToken(refreshToken)
	sess, err := s.sessions.GetByRefreshHash(ctx, oldHash)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if sess == nil || !sess.Active || sess.Expired(now) || sess.IdleTooLong(now) {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, ErrInvalidRefreshToken
	}
	newRefresh, err := security.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	newExpiry := now.Add(s.refreshTTL)
	rotated, err := s.sessions.Rotate(ctx, sess.ID, oldHash, security.HashRefreshToken(newRefresh), newExpiry, now)
	if err != nil {
		return nil, err
	}
	if !rotated {
		return nil, ErrInvalidRefreshToken
	}
	_ = s.users.TouchActivity(ctx, user.ID, now)
	accessToken, accessExp, err := s.mintAccess(ctx, user, sess.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     newRefresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: newExpiry,
		UserID:           user.ID,
		SessionID:        sess.ID,
	}, nil
}

// ExtendAccess reloads the user's roles, rebuilds the permission snapshot, and
// mints a fresh access token bound to the same session. The refresh token is
// not rotated.
func (s *TokenService) ExtendAccess(ctx context.Context, userID int64, sessionID string) (string, time.Time, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", time.Time{}, err
	}
	if user == nil || !user.Active {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.mintAccess(ctx, user, sessionID)
}

// TouchActivity records request activity on the session and the user.
// Best-effort semantics are the caller's concern; errors are returned as-is.
func (s *TokenService) TouchActivity(ctx context.Context, sessionID string, userID int64) error {
	now := s.now().UTC()
	if sessionID != "" {
		if err := s.sessions.TouchActivity(ctx, sessionID, now); err != nil {
			return err
		}
	}
	return s.users.TouchActivity(ctx, userID, now)
}

// Revoke soft-deletes the session holding refreshToken. Unknown tokens are a no-op.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	if err := security.ValidateRefreshTokenFormat(refreshToken); err != nil {
		return nil
	}
	return s.sessions.Revoke(ctx, security.HashRefreshToken(refreshToken))
}

// RevokeAllForUser soft-deletes every active session of the user across devices.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID int64) error {
	return s.sessions.RevokeAllByUser(ctx, userID)
}

// ListSessions returns the user's active sessions for multi-device visibility.
func (s *TokenService) ListSessions(ctx context.Context, userID int64) ([]*sessiondomain.Session, error) {
	return s.sessions.ListActiveByUser(ctx, userID)
}

// CleanupExpired hard-deletes sessions whose refresh token expired or that
// have been idle for the maximum idle window. Returns the number removed.
func (s *TokenService) CleanupExpired(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	return s.sessions.DeleteExpired(ctx, now, now.Add(-sessiondomain.MaxIdle))
}

func (s *TokenService) mintAccess(ctx context.Context, user *userdomain.User, sessionID string) (string, time.Time, error) {
	roleIDs, err := s.users.ListRoleIDs(ctx, user.ID)
	if err != nil {
		return "", time.Time{}, err
	}
	roles := make([]string, len(roleIDs))
	for i, id := range roleIDs {
		roles[i] = strconv.FormatInt(id, 10)
	}
	permClaims := s.perms.Claims(ctx, user.ID, roles)
	return s.tokens.MintAccess(user.ID, user.Name, roles, sessionID, permClaims)
}
