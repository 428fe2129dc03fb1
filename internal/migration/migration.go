// Package migration brings a fresh database up to a usable state: it
// applies the embedded schema and seeds the first administrator account.
package migration

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/veritext/veritext/internal/config"
	"github.com/veritext/veritext/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var schema embed.FS

var Module = fx.Module("migrations",
	fx.Invoke(Run),
)

// Run applies pending schema migrations and seeds the bootstrap admin.
// Non-postgres deployments manage schema out of band and only seed.
func Run(conn *gorm.DB, cfg config.Config) error {
	if cfg.DBType == "postgres" {
		if err := applySchema(conn); err != nil {
			return err
		}
	}
	return seed.EnsureBootstrapAdmin(conn, cfg.Bootstrap)
}

func applySchema(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	files, err := fs.Sub(schema, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	// migrator.Close would tear down the shared *sql.DB, so the
	// migrator is left for the driver to collect.
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
