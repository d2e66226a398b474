package sqlite

import (
	"database/sql"
	"embed"
	stderrors "errors"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending local schema migration.
func Migrate(db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "access local migrations")
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "create local migration source")
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "create local migrate driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "create local migrate instance")
	}

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "migrate local schema")
	}
	return nil
}
