package migration

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	// Driver registration for the two ledger databases.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"libkiosk/internal/config"
	"libkiosk/migrations"
)

// Migrator is the part of migrate.Migrate the kiosk uses.
type Migrator interface {
	Up() error
	Down() error
	Close() (error, error)
}

// MigrationEngine builds a Migrator. Tests inject a mock so no database is touched.
type MigrationEngine func(src fs.FS, dir, databaseURL string) (Migrator, error)

type Migration struct {
	cfg    config.DB
	src    fs.FS
	engine MigrationEngine
}

func NewMigration(cfg config.DB, engine MigrationEngine) *Migration {
	return &Migration{
		cfg:    cfg,
		src:    migrations.FS,
		engine: engine,
	}
}

// DefaultEngine reads the embedded SQL files through iofs.
func DefaultEngine(src fs.FS, dir, databaseURL string) (Migrator, error) {
	d, err := iofs.New(src, dir)
	if err != nil {
		return nil, fmt.Errorf("open migrations %s: %w", dir, err)
	}
	return migrate.NewWithSourceInstance("iofs", d, databaseURL)
}

// DatabaseURL turns the configured DSN into a golang-migrate database URL.
// PostgreSQL DSNs must be in URL form.
func DatabaseURL(cfg config.DB) string {
	if cfg.Driver == config.DriverPostgres {
		return cfg.DSN
	}
	return "sqlite3://" + cfg.SQLitePath()
}

func (mg *Migration) Up() error {
	return mg.run(func(m Migrator) error { return m.Up() })
}

func (mg *Migration) Down() error {
	return mg.run(func(m Migrator) error { return m.Down() })
}

func (mg *Migration) run(step func(Migrator) error) (err error) {
	m, err := mg.engine(mg.src, migrations.Dir(mg.cfg.Driver), DatabaseURL(mg.cfg))
	if err != nil {
		return err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration source error: %v", err, serr)
			} else {
				err = serr
			}
		}
		if dberr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration database error: %v", err, dberr)
			} else {
				err = dberr
			}
		}
	}()

	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
