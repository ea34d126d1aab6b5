// File: internal/platform/database/migrate.go
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"wws_listings_backend/internal/config"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq" // registers the "postgres" database/sql driver used by golang-migrate
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to date. Postgres runs the versioned SQL
// migrations; SQLite (development and tests) is auto-migrated from models.
func Migrate(cfg *config.Config, db *gorm.DB, logger *zap.Logger, models ...interface{}) error {
	switch cfg.DBDriver {
	case config.DBDriverPostgres:
		return MigratePostgresUp(cfg.DBSource, logger)
	case config.DBDriverSQLite:
		if err := db.AutoMigrate(models...); err != nil {
			return fmt.Errorf("auto-migrate failed: %w", err)
		}
		logger.Info("SQLite schema auto-migrated", zap.Int("models", len(models)))
		return nil
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

// MigratePostgresUp applies all pending embedded migrations against dbSource.
func MigratePostgresUp(dbSource string, logger *zap.Logger) error {
	m, closeFn, err := newPostgresMigrator(dbSource)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	logger.Info("Database migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// MigratePostgresDown rolls back every embedded migration.
func MigratePostgresDown(dbSource string, logger *zap.Logger) error {
	m, closeFn, err := newPostgresMigrator(dbSource)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	logger.Info("Database migrations rolled back")
	return nil
}

func newPostgresMigrator(dbSource string) (*migrate.Migrate, func(), error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	sqlDB, err := sql.Open("postgres", dbSource)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open migration connection: %w", err)
	}

	driver, err := migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{})
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to create postgres migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, func() { m.Close() }, nil
}
