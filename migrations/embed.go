// Package migrations holds the SQL applied when STORAGE_TYPE=postgres.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
