// Package postgres registers the PostgreSQL dialector for the run repository.
// Importing it for side effects makes the "postgres" database type available.
package postgres

import (
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/repository"
)

func init() {
	repository.RegisterDialector("postgres", func(cfg repository.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Host == "" || cfg.Database == "" {
			return nil, errors.New("postgres connection requires host and database")
		}
		return postgres.Open(cfg.PostgresDSN()), nil
	})
}
