package mysql

import (
	"database/sql"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/infrastructure/mysql/migrations"
)

// Migrate applies every pending schema migration. It returns the schema
// version it ended on.
func Migrate(dsn string) (uint, error) {
	prepared, err := prepareDSN(dsn, true)
	if err != nil {
		return 0, err
	}
	db, err := sql.Open("mysql", prepared)
	if err != nil {
		return 0, errors.Wrap(err, "open mysql for migrations")
	}
	defer db.Close()

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return 0, errors.Wrap(err, "load migrations")
	}
	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return 0, errors.Wrap(err, "init migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
	if err != nil {
		return 0, errors.Wrap(err, "init migrator")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, errors.Wrap(err, "apply migrations")
	}
	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, errors.Wrap(err, "read schema version")
	}
	return version, nil
}
