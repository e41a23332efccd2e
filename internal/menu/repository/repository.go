// Package repository persists menus and role-to-menu assignments.
package repository

import (
	"context"

	"ecomconsole/backend/internal/menu/domain"
)

// Repository is the menu store. It satisfies permission.MenuSource.
type Repository interface {
	// ListMenuIDsByRoles returns the deduplicated menu ids assigned to any of the roles.
	ListMenuIDsByRoles(ctx context.Context, roleIDs []int64) ([]int64, error)
	// ListActiveByIDs returns the active menus among ids.
	ListActiveByIDs(ctx context.Context, ids []int64) ([]*domain.Menu, error)
}
