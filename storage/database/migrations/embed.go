// Package migrations embeds the SQL migrations of the ledger schema, run by goose.
// They are written for both PostgreSQL and SQLite.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
