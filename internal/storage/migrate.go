package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// SchemaVersion is the newest embedded document schema.
const SchemaVersion = 2

//go:embed migrations/*.sql
var schemaFS embed.FS

// MigrateSchema brings the document tables of the database at dbPath up to
// SchemaVersion and returns the version found afterwards. A schema left
// dirty by an interrupted upgrade is reported, never forced.
func MigrateSchema(dbPath string) (uint, error) {
	// golang-migrate closes the handle it is given
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open schema database: %w", err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("schema driver: %w", err)
	}
	src, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("schema source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("schema migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("upgrade document schema: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read document schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("document schema version %d is dirty", version)
	}
	return version, nil
}
