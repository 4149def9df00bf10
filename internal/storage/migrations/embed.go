package migrations

import "embed"

// FS embeds the SQL migrations of the local history cache.
//
//go:embed *.sql
var FS embed.FS
