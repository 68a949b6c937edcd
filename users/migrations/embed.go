// Package migrations embeds the goose schema migrations for the users store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
