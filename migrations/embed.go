// Package migrations embeds the schema migration files and registers them
// with the database package. Import for side effects:
//
//	import _ "github.com/nerrad567/fleetsim/migrations"
package migrations

import (
	"embed"

	"github.com/nerrad567/fleetsim/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
