package permission

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	menudomain "ecomconsole/backend/internal/menu/domain"
)

// MenuSource is the minimal menu lookup needed by the encoder.
type MenuSource interface {
	// ListMenuIDsByRoles returns the deduplicated menu ids assigned to any of the roles.
	ListMenuIDsByRoles(ctx context.Context, roleIDs []int64) ([]int64, error)
	// ListActiveByIDs returns the active menus among ids. Missing or inactive ids are skipped.
	ListActiveByIDs(ctx context.Context, ids []int64) ([]*menudomain.Menu, error)
}

// Encoder resolves a user's roles into a compressed permission snapshot and
// the claims that carry it.
type Encoder struct {
	menus MenuSource
	now   func() time.Time
}

// NewEncoder returns an Encoder backed by the given menu source.
func NewEncoder(menus MenuSource) *Encoder {
	return &Encoder{menus: menus, now: time.Now}
}

// Claims builds the permission claims for a user with the given role ids.
// Non-numeric role ids are ignored; no numeric roles means an empty (but
// well-formed) permission snapshot. On any failure Claims returns an empty
// map, degrading the user to no permissions rather than all permissions.
func (e *Encoder) Claims(ctx context.Context, userID int64, roleIDs []string) map[string]string {
	perms, err := e.buildPermissions(ctx, roleIDs)
	if err != nil {
		log.Printf("permission: encode for user %d failed: %v", userID, err)
		return map[string]string{}
	}
	payload := Payload{
		Version:         PayloadVersion,
		GeneratedAt:     e.now().UTC(),
		Hash:            HashPermissions(perms),
		MenuPermissions: perms,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("permission: encode for user %d failed: %v", userID, err)
		return map[string]string{}
	}
	compressed := Compress(string(raw))
	if compressed == "" {
		log.Printf("permission: encode for user %d failed: empty compressed payload", userID)
		return map[string]string{}
	}
	return map[string]string{
		ClaimMenuPerms:   compressed,
		ClaimMenuHash:    payload.Hash,
		ClaimPermVersion: payload.Version,
	}
}

func (e *Encoder) buildPermissions(ctx context.Context, roleIDs []string) ([]MenuPermission, error) {
	numeric := numericRoleIDs(roleIDs)
	if len(numeric) == 0 {
		return []MenuPermission{}, nil
	}
	menuIDs, err := e.menus.ListMenuIDsByRoles(ctx, numeric)
	if err != nil {
		return nil, err
	}
	if len(menuIDs) == 0 {
		return []MenuPermission{}, nil
	}
	menus, err := e.menus.ListActiveByIDs(ctx, dedupe(menuIDs))
	if err != nil {
		return nil, err
	}
	perms := make([]MenuPermission, 0, len(menus))
	for _, m := range menus {
		if strings.TrimSpace(m.URL) == "" {
			continue
		}
		perms = append(perms, MenuPermission{
			MenuID:         m.ID,
			Code:           m.Code,
			URL:            NormalizePath(m.URL),
			AllowedMethods: parseAllowedMethods(m.Description),
			IsWildcard:     strings.ContainsAny(m.URL, "*{:"),
		})
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].URL < perms[j].URL })
	return perms, nil
}

func numericRoleIDs(roleIDs []string) []int64 {
	out := make([]int64, 0, len(roleIDs))
	for _, r := range roleIDs {
		id, err := strconv.ParseInt(strings.TrimSpace(r), 10, 64)
		if err == nil {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// knownMethods is scanned in order against the menu description; the
// description is operator-maintained free text, not a structured field.
var knownMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

func parseAllowedMethods(description string) []string {
	upper := strings.ToUpper(description)
	var out []string
	for _, m := range knownMethods {
		if strings.Contains(upper, m) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return []string{"GET"}
	}
	return out
}
