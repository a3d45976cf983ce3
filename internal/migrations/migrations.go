// Package migrations applies the embedded urls/stats schema with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/darkodi/shorturl/internal/logger"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// UpPostgres applies pending migrations on a dedicated connection to dsn.
// The connection is closed before returning.
func UpPostgres(dsn string, log *logger.Logger) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("create postgres migration driver: %w", err)
	}

	m, err := newMigrate("postgres", driver)
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close() // closes db as well

	return up(m, "postgres", log)
}

// UpSQLite applies pending migrations on db. The driver shares db with the
// caller, so it is left open; in-memory databases only exist on that handle.
func UpSQLite(db *sql.DB, log *logger.Logger) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migration driver: %w", err)
	}

	m, err := newMigrate("sqlite3", driver)
	if err != nil {
		return err
	}

	return up(m, "sqlite", log)
}

func newMigrate(name string, driver database.Driver) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, name, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

func up(m *migrate.Migrate, dialect string, log *logger.Logger) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is dirty at migration version %d", version)
	}

	log.Info("migrations applied", "dialect", dialect, "version", version)
	return nil
}
