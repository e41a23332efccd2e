package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ecomconsole/backend/internal/user/domain"
)

// PostgresRepository implements Repository on the users and user_roles tables.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, name, email, password_hash, active, last_activity_at, created_at, updated_at`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByUsername returns the user for username, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// ListRoleIDs returns the ids of the roles assigned to the user.
func (r *PostgresRepository) ListRoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role_id FROM user_roles WHERE user_id = $1 ORDER BY role_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// TouchActivity sets the user's last-activity column.
func (r *PostgresRepository) TouchActivity(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_activity_at = $1, updated_at = $1 WHERE id = $2`, at, userID)
	return err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u     domain.User
		email sql.NullString
		last  sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Name, &email, &u.PasswordHash, &u.Active, &last, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Email = email.String
	if last.Valid {
		u.LastActivityAt = &last.Time
	}
	return &u, nil
}
