// Package mysql registers the MySQL dialector for the run repository.
// Importing it for side effects makes the "mysql" database type available.
package mysql

import (
	"errors"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/repository"
)

func init() {
	repository.RegisterDialector("mysql", func(cfg repository.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Host == "" || cfg.Database == "" {
			return nil, errors.New("mysql connection requires host and database")
		}
		return mysql.Open(cfg.MySQLDSN()), nil
	})
}
