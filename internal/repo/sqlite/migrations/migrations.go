// Package migrations содержит схему SQLite-хранилища.
package migrations

import "embed"

// FS — встроенные файлы миграций (формат golang-migrate).
//
//go:embed *.sql
var FS embed.FS
