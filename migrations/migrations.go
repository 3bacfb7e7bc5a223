// Package migrations embeds the catalog schema migrations applied by tern
package migrations

import "embed"

// FS holds the numbered tern migration files
//
//go:embed *.sql
var FS embed.FS
