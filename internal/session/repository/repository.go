// Package repository persists sessions. The postgres implementation is the
// production store; services depend on the interface so tests can use
// in-memory fakes.
package repository

import (
	"context"
	"time"

	"ecomconsole/backend/internal/session/domain"
)

// Repository is the session store. Rotate is the single concurrency-sensitive
// operation: implementations must guarantee that of two concurrent rotations
// presenting the same old refresh-token hash, exactly one succeeds.
type Repository interface {
	// Create persists the session. The session must have ID set.
	Create(ctx context.Context, s *domain.Session) error
	// GetByRefreshHash returns the active session holding the given
	// refresh-token hash, or nil if none. Error only on store failure.
	GetByRefreshHash(ctx context.Context, hash string) (*domain.Session, error)
	// Rotate atomically replaces the refresh token of session id, but only if
	// the stored hash still equals oldHash. Returns false when another caller
	// rotated first (or the session was revoked meanwhile).
	Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt, now time.Time) (bool, error)
	// Revoke soft-deletes the active session holding the refresh-token hash.
	Revoke(ctx context.Context, hash string) error
	// RevokeAllByUser soft-deletes every active session of the user. Keyed by
	// a user-id filter, not a primary-key lookup.
	RevokeAllByUser(ctx context.Context, userID int64) error
	// TouchActivity updates the session's last-activity timestamp.
	TouchActivity(ctx context.Context, id string, at time.Time) error
	// ListActiveByUser returns the user's active sessions, most recent first.
	ListActiveByUser(ctx context.Context, userID int64) ([]*domain.Session, error)
	// DeleteExpired hard-deletes sessions whose refresh token expired or whose
	// last activity predates idleCutoff. Returns the number of rows removed.
	DeleteExpired(ctx context.Context, now, idleCutoff time.Time) (int64, error)
}
