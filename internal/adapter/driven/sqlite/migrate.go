package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// schemaFS carries the versioned schema (settings, credentials, prompts,
// categories, cache entries) so the binary needs no migration files on disk.
//
//go:embed migrations/*.sql
var schemaFS embed.FS

// RunMigrations brings the database up to the newest embedded schema
// version. Call it on every startup; a database that is already current is
// a no-op.
func RunMigrations(db *sql.DB) error {
	src, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	target, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("wrap database for migration: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", src, "sqlite", target)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
