// Package migrations embeds the schema migration files for the file-backed
// secret store so they compile into the binary.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
