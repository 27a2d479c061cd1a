package store

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending migration in migrations/ via
// github.com/pressly/goose/v3 (SPEC_FULL.md §8). db is a
// database/sql.DB; goose drives its own connection separately from the
// pgxpool.Pool the rest of the store uses, since goose speaks database/sql
// rather than pgx's native interface.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}
