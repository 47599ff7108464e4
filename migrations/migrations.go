// Package migrations embeds the catalog schema.
package migrations

import "embed"

// FS holds the *.up.sql files applied in lexical order by
// database.RunMigrations.
//
//go:embed *.sql
var FS embed.FS
