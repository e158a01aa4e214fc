// Package migrations embeds the SQL schema files consumed by the migrate
// command through golang-migrate's iofs source.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
