// Package migrations embeds the SQL schema migrations so binaries can
// migrate without the source tree.
package migrations

import "embed"

// FS holds every *.sql file of this directory
//
//go:embed *.sql
var FS embed.FS
