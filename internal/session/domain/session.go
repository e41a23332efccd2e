package domain

import "time"

// MaxIdle is how long a session may go without activity before refresh is
// refused and cleanup may hard-delete it.
const MaxIdle = 30 * 24 * time.Hour

// Session is one login on one device. A user is expected to hold several
// active sessions at once. Revocation soft-deletes (Active=false); the cleanup
// job hard-deletes expired or long-idle rows.
type Session struct {
	ID               string
	UserID           int64
	RefreshTokenHash string
	RefreshExpiresAt time.Time
	DeviceID         string
	DeviceInfo       string
	IPAddress        string
	LastActivityAt   time.Time
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Expired reports whether the session's refresh token has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.RefreshExpiresAt)
}

// IdleTooLong reports whether the session has been inactive for at least MaxIdle.
func (s *Session) IdleTooLong(now time.Time) bool {
	return !s.LastActivityAt.After(now.Add(-MaxIdle))
}
