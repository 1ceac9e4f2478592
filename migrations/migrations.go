// Package migrations embeds the goose schema migrations so the binary can
// bring the database up to date at startup without shipping SQL files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
