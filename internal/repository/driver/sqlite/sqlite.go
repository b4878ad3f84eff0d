// Package sqlite registers the SQLite dialector for the run repository.
// Importing it for side effects makes the "sqlite" database type available.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/repository"
)

func init() {
	repository.RegisterDialector("sqlite", func(cfg repository.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("sqlite database path cannot be empty")
		}
		return sqlite.Open(cfg.Database), nil
	})
}
