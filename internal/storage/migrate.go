package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// RunMigrations applies the embedded schema for the given dialect. It opens
// its own connection so closing the migrator leaves the caller's pool alone.
func RunMigrations(dialect Dialect, dsn string) error {
	var (
		migrateDB *sql.DB
		driver    database.Driver
		err       error
	)

	switch dialect {
	case DialectSQLite:
		migrateDB, err = sql.Open("sqlite", dsn)
		if err != nil {
			return fmt.Errorf("open migration database: %w", err)
		}
		driver, err = sqlite.WithInstance(migrateDB, &sqlite.Config{})
	case DialectPostgres:
		cfg, perr := pgx.ParseConfig(dsn)
		if perr != nil {
			return fmt.Errorf("parse database url: %w", perr)
		}
		migrateDB = stdlib.OpenDB(*cfg)
		driver, err = migratepgx.WithInstance(migrateDB, &migratepgx.Config{})
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	defer migrateDB.Close()
	if err != nil {
		return fmt.Errorf("create %s driver: %w", dialect, err)
	}

	d, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, string(dialect), driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
