// Package repository persists users and their role assignments.
package repository

import (
	"context"
	"time"

	"ecomconsole/backend/internal/user/domain"
)

// Repository is the user store consumed by the auth service and the
// sliding-session middleware.
type Repository interface {
	// GetByID returns the user for id, or nil if not found.
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByUsername returns the user for username, or nil if not found.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// ListRoleIDs returns the ids of the roles assigned to the user.
	ListRoleIDs(ctx context.Context, userID int64) ([]int64, error)
	// TouchActivity updates the user's last-activity column.
	TouchActivity(ctx context.Context, userID int64, at time.Time) error
}
