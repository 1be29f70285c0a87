package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// MigrationStatus describes the schema version recorded in the database.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	// Applied is false when no migration has ever run.
	Applied bool
}

// RunMigrations applies every pending up migration.
func RunMigrations(databaseURL string) error {
	return withMigrator(databaseURL, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	})
}

// RollbackMigrations reverts steps migrations, or all of them when steps <= 0.
func RollbackMigrations(databaseURL string, steps int) error {
	return withMigrator(databaseURL, func(m *migrate.Migrate) error {
		var err error
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("rollback migrations: %w", err)
		}
		return nil
	})
}

// Status reports the current schema version.
func Status(databaseURL string) (MigrationStatus, error) {
	var status MigrationStatus
	err := withMigrator(databaseURL, func(m *migrate.Migrate) error {
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read migration version: %w", err)
		}
		status = MigrationStatus{Version: version, Dirty: dirty, Applied: true}
		return nil
	})
	return status, err
}

func withMigrator(databaseURL string, fn func(*migrate.Migrate) error) error {
	target, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return err
	}
	if target.Dialect == DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(target.Path), 0755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
	}

	// Create a separate connection for migrations to avoid interfering with the main pool
	migrateDB, err := sql.Open(target.DriverName(), target.DSN)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	var (
		dbName = string(target.Dialect)
		m      *migrate.Migrate
	)
	src, err := iofs.New(migrationsFS, "migrations/"+string(target.Dialect))
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	switch target.Dialect {
	case DialectPostgres:
		driver, err := migratepgx.WithInstance(migrateDB, &migratepgx.Config{})
		if err != nil {
			return fmt.Errorf("create pgx driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, dbName, driver)
		if err != nil {
			return fmt.Errorf("create migrate instance: %w", err)
		}
	default:
		driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
		if err != nil {
			return fmt.Errorf("create sqlite driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, dbName, driver)
		if err != nil {
			return fmt.Errorf("create migrate instance: %w", err)
		}
	}
	defer m.Close()

	return fn(m)
}
