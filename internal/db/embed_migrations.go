package db

import "embed"

// MigrationFS embeds the SQL migrations so cmd/migrate (or scripts/migrate.sh)
// can run without access to the source tree.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
