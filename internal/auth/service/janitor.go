package service

import (
	"context"
	"time"

	sessiondomain "ecomconsole/backend/internal/session/domain"
)

// SessionJanitor removes dead sessions. It carries only the session
// repository so the cleanup binary does not need the full token stack.
type SessionJanitor struct {
	sessions SessionRepo
	now      func() time.Time
}

func NewSessionJanitor(sessions SessionRepo) *SessionJanitor {
	return &SessionJanitor{sessions: sessions, now: time.Now}
}

// Sweep hard-deletes sessions whose refresh token expired or that have been
// idle for the maximum idle window. Returns the number removed.
func (j *SessionJanitor) Sweep(ctx context.Context) (int64, error) {
	now := j.now().UTC()
	return j.sessions.DeleteExpired(ctx, now, now.Add(-sessiondomain.MaxIdle))
}
