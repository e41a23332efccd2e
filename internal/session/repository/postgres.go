package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ecomconsole/backend/internal/session/domain"
)

// PostgresRepository implements Repository on the sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, refresh_token_hash, refresh_expires_at, device_id, device_info, ip_address, last_activity_at, active, created_at, updated_at`

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.RefreshExpiresAt,
		nullIfEmpty(s.DeviceID), nullIfEmpty(s.DeviceInfo), nullIfEmpty(s.IPAddress),
		s.LastActivityAt, s.Active, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// GetByRefreshHash returns the active session holding hash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByRefreshHash(ctx context.Context, hash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE refresh_token_hash = $1 AND active`, hash)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Rotate performs the compare-and-swap refresh rotation. The WHERE clause on
// the old hash is what serializes concurrent refreshes: zero rows affected
// means another caller already rotated this session.
func (r *PostgresRepository) Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET refresh_token_hash = $1, refresh_expires_at = $2, last_activity_at = $3, updated_at = $3
		WHERE id = $4 AND refresh_token_hash = $5 AND active`,
		newHash, expiresAt, now, id, oldHash,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Revoke marks the active session holding hash as inactive.
func (r *PostgresRepository) Revoke(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET active = FALSE, updated_at = NOW()
		WHERE refresh_token_hash = $1 AND active`, hash)
	return err
}

// RevokeAllByUser marks every active session of the user as inactive.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET active = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND active`, userID)
	return err
}

// TouchActivity sets the session's last-activity timestamp.
func (r *PostgresRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET last_activity_at = $1, updated_at = $1
		WHERE id = $2`, at, id)
	return err
}

// ListActiveByUser returns the user's active sessions ordered by last activity.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID int64) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND active
		ORDER BY last_activity_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteExpired hard-deletes sessions past their refresh expiry or idle since
// before idleCutoff, regardless of the active flag.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now, idleCutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE refresh_expires_at <= $1 OR last_activity_at <= $2`, now, idleCutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s          domain.Session
		deviceID   sql.NullString
		deviceInfo sql.NullString
		ipAddress  sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.RefreshTokenHash, &s.RefreshExpiresAt,
		&deviceID, &deviceInfo, &ipAddress,
		&s.LastActivityAt, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.DeviceID = deviceID.String
	s.DeviceInfo = deviceInfo.String
	s.IPAddress = ipAddress.String
	return &s, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
