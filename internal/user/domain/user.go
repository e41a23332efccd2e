package domain

import "time"

// User is a console operator account. Role assignments live in user_roles and
// are loaded separately; permissions derive from roles at token-encoding time.
type User struct {
	ID             int64
	Username       string
	Name           string
	Email          string
	PasswordHash   string
	Active         bool
	LastActivityAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
