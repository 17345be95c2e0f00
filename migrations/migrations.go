// Package migrations applies the embedded database schema on startup.
package migrations

import (
	"embed"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql
var migrationsFS embed.FS

type Migrator struct {
	migrate *migrate.Migrate
	log     *slog.Logger
}

func New(databaseURL string, log *slog.Logger) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{migrate: m, log: log}, nil
}

// Up applies every pending migration. A database that is already current is
// not an error.
func (m *Migrator) Up() error {
	if err := m.migrate.Up(); err != nil {
		if err == migrate.ErrNoChange {
			m.log.Info("database schema already up to date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, _ := m.migrate.Version()
	m.log.Info("database migrations applied", slog.Uint64("version", uint64(version)))
	return nil
}

func (m *Migrator) Close() {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		m.log.Error("failed to close migration source", slog.Any("error", sourceErr))
	}
	if dbErr != nil {
		m.log.Error("failed to close migration database handle", slog.Any("error", dbErr))
	}
}
