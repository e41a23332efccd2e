package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"ecomconsole/backend/internal/menu/domain"
)

// PostgresRepository implements Repository on the menus and role_menus tables.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a menu repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListMenuIDsByRoles returns the deduplicated menu ids assigned to any of the roles.
func (r *PostgresRepository) ListMenuIDsByRoles(ctx context.Context, roleIDs []int64) ([]int64, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	placeholders, args := int64Args(roleIDs)
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT menu_id FROM role_menus
		WHERE role_id IN (`+placeholders+`)
		ORDER BY menu_id`, args...)
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

// ListActiveByIDs returns the active menus among ids.
func (r *PostgresRepository) ListActiveByIDs(ctx context.Context, ids []int64) ([]*domain.Menu, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := int64Args(ids)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, name, url, description, active, created_at, updated_at
		FROM menus
		WHERE active AND id IN (`+placeholders+`)
		ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Menu
	for rows.Next() {
		var (
			m    domain.Menu
			desc sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.URL, &desc, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.Description = desc.String
		out = append(out, &m)
	}
	return out, rows.Err()
}

// int64Args builds "$1, $2, ..." and the matching args slice for an IN clause.
func int64Args(ids []int64) (string, []any) {
	var b strings.Builder
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("$" + strconv.Itoa(i+1))
		args[i] = id
	}
	return b.String(), args
}
