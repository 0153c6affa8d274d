package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers pgx5://
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrator is the subset of golang-migrate used by the CLI and tests.
type Migrator interface {
	Up() error
	Down() error
	Steps(int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

// NewMigrator returns a migration instance for the given backend, reading the
// embedded migrations that match it.
func NewMigrator(driver, databaseURL string) (Migrator, error) {
	switch driver {
	case "sqlite":
		return newSQLiteMigrator(databaseURL)
	case "postgres":
		migrateURL, err := postgresMigrateURL(databaseURL)
		if err != nil {
			return nil, err
		}
		src, err := iofs.New(migrationsFS, "migrations/postgres")
		if err != nil {
			return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
		}
		m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create migrator: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// newSQLiteMigrator migrates through a handle opened by NewSQLiteDB, so the
// migrator and the row store always resolve path to the same file. Closing the
// migrator closes the handle.
func newSQLiteMigrator(path string) (Migrator, error) {
	if path == "" {
		return nil, errors.New("sqlite migrations need a database path")
	}

	src, err := iofs.New(migrationsFS, "migrations/sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	db, err := NewSQLiteDB(context.Background(), path)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	drv, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		_ = src.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		_ = src.Close()
		_ = drv.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies every pending migration. An up-to-date schema is not an error.
func MigrateUp(driver, databaseURL string) error {
	return runMigration(driver, databaseURL, "up", Migrator.Up)
}

// MigrateDown reverts every applied migration.
func MigrateDown(driver, databaseURL string) error {
	return runMigration(driver, databaseURL, "down", Migrator.Down)
}

// MigrateSteps applies n migrations forward, or reverts -n when n is negative.
func MigrateSteps(driver, databaseURL string, n int) error {
	direction := "up"
	if n < 0 {
		direction = "down"
	}
	return runMigration(driver, databaseURL, direction, func(m Migrator) error {
		return m.Steps(n)
	})
}

func runMigration(driver, databaseURL, direction string, fn func(Migrator) error) error {
	m, err := NewMigrator(driver, databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			slog.Warn("Failed to close migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate %s: %w", direction, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	slog.Info("Database migrated", "direction", direction, "driver", driver, "version", version, "dirty", dirty)
	return nil
}

// postgresMigrateURL rewrites a postgres:// URL onto the pgx5:// scheme
// golang-migrate registers for the pgx driver.
func postgresMigrateURL(databaseURL string) (string, error) {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme), nil
		}
	}
	return "", errors.New("postgres migrations need a postgres:// URL")
}
