package db

import "embed"

// MigrationFS holds the users, identities, sessions and audit_logs schema.
// Applied by migrate.Run (cmd/migrate, and cmd/server when MIGRATE_ON_START is set).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
