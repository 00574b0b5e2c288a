// Package database opens the gorm connection and brings the schema up to date.
package database

import (
	"embed"
	"errors"
	"fmt"
	"log"

	"pms/internal/config"
	"pms/internal/model"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Models lists every entity, in dependency order, for AutoMigrate.
var Models = []any{
	&model.User{},
	&model.Project{},
	&model.Task{},
	&model.ProjectMember{},
}

// Open connects with the configured driver and migrates the schema.
// PostgreSQL uses the versioned SQL migrations; sqlite (local development) uses AutoMigrate.
func Open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("❌ failed to open sqlite database: %w", err)
		}
		if err := db.AutoMigrate(Models...); err != nil {
			return nil, fmt.Errorf("❌ failed to migrate sqlite database: %w", err)
		}
		log.Printf("✅ Connected to sqlite database %s", cfg.DBPath)
		return db, nil

	case "postgres", "":
		if err := Migrate(cfg.MigrateURL()); err != nil {
			return nil, err
		}
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
		}
		log.Println("✅ Connected to database")
		return db, nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

// Migrate applies the embedded migrations to the database at url.
func Migrate(url string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, _, _ := m.Version()
	log.Printf("✅ Database schema at version %d", version)
	return nil
}
