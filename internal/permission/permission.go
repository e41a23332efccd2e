// Package permission implements the menu-permission snapshot embedded in access
// tokens: the compressed payload codec, the encoder that builds a snapshot from
// a user's roles, and the request matcher that checks a path and method against
// a decoded snapshot.
package permission

import (
	"crypto/sha256"
	"encoding/base64"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PayloadVersion is the perm_version claim value for snapshots produced by this encoder.
const PayloadVersion = "1.0"

// Claim names consumed and produced by the permission subsystem.
const (
	ClaimMenuPerms   = "menu_perms"
	ClaimMenuHash    = "menu_hash"
	ClaimPermVersion = "perm_version"
)

// MenuPermission binds a normalized URL pattern and allowed HTTP methods to a
// menu node. It is an immutable snapshot taken at encoding time.
type MenuPermission struct {
	MenuID         int64    `json:"menuId"`
	Code           string   `json:"code"`
	URL            string   `json:"url"`
	AllowedMethods []string `json:"allowedMethods"`
	IsWildcard     bool     `json:"isWildcard"`
}

// Payload is the permission snapshot serialized (camelCase JSON), compressed,
// and embedded in the menu_perms claim. MenuPermissions is sorted by URL.
type Payload struct {
	Version         string           `json:"version"`
	GeneratedAt     time.Time        `json:"generatedAt"`
	Hash            string           `json:"hash"`
	MenuPermissions []MenuPermission `json:"menuPermissions"`
}

// HashPermissions computes the integrity hash for a permission set: the first
// 16 characters of base64(SHA-256) over the pipe-joined "id:code:url:methods"
// entries sorted by menu id. The hash is stable for an identical set and
// changes when any id, code, url, or method changes.
func HashPermissions(perms []MenuPermission) string {
	sorted := make([]MenuPermission, len(perms))
	copy(sorted, perms)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MenuID < sorted[j].MenuID })

	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = strconv.FormatInt(p.MenuID, 10) + ":" + p.Code + ":" + p.URL + ":" + strings.Join(p.AllowedMethods, ",")
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	encoded := base64.StdEncoding.EncodeToString(sum[:])
	if len(encoded) > 16 {
		encoded = encoded[:16]
	}
	return encoded
}
