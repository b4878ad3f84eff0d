package repository

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/config"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/exception"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/logger"
)

// migrationsTable names the schema-version bookkeeping table.
const migrationsTable = "schema_migrations"

// Migrate brings the metadata database schema up to date from the embedded
// migration files. The path within migrationFS is selected per database type
// (e.g., "migrations/sqlite"), so each dialect carries its own DDL.
func Migrate(cfg *config.Config, migrationFS fs.FS, basePath string) error {
	db, dbCfg, err := openMetadataDB(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return exception.NewPipelineError(moduleName, "failed to get underlying sql.DB for migration", err, false, false)
	}
	defer sqlDB.Close()

	var driver migratedb.Driver
	switch dbCfg.Type {
	case "sqlite":
		driver, err = sqlite3.WithInstance(sqlDB, &sqlite3.Config{MigrationsTable: migrationsTable})
	case "postgres":
		driver, err = postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: migrationsTable})
	case "mysql":
		driver, err = mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: migrationsTable})
	default:
		return exception.NewPipelineError(moduleName,
			fmt.Sprintf("unsupported database type for migration: '%s'", dbCfg.Type), nil, false, false)
	}
	if err != nil {
		return exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to create migration driver for '%s'", dbCfg.Type), err, false, false)
	}

	path := basePath + "/" + dbCfg.Type
	source, err := iofs.New(migrationFS, path)
	if err != nil {
		return exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to open embedded migrations at '%s'", path), err, false, false)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbCfg.Type, driver)
	if err != nil {
		return exception.NewPipelineError(moduleName, "failed to create migrate instance", err, false, false)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return exception.NewPipelineError(moduleName,
			fmt.Sprintf("migration failed for database type '%s'", dbCfg.Type), err, false, false)
	}
	logger.Infof("Metadata database schema is up to date (%s).", dbCfg.Type)
	return nil
}
