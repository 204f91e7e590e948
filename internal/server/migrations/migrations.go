// Package migrations embeds the goose SQL migrations.
//
// The statements are kept to the subset understood by both Postgres and SQLite.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
