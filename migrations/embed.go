// Package migrations embeds the climate service schema into the binary.
//
// Importing it for side effects registers the files with the database
// package:
//
//	import _ "github.com/nerrad567/gray-logic-climate/migrations"
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.RegisterMigrations(migrationsFS, ".")
}
