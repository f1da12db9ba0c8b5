// Package migrations embeds the goose SQL migrations. Migrations only ever add objects.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
