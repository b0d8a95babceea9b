// Package migrations embeds the goose SQL migrations of the ledger schema.
package migrations

import "embed"

// Dir is the directory inside FS that holds the migration files.
const Dir = "sql"

//go:embed sql/*.sql
var FS embed.FS
