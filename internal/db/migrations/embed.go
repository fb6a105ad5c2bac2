// Package migrations provides embedded SQL migration files, applied at
// startup when MIGRATE_ON_START is set and by integration tests.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
