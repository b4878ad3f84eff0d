// Package repository persists run metadata: one row per pipeline run and one
// row per stage execution, with the counters that make a run report
// reconstructable after the fact. Persistence goes through GORM; the SQL
// dialect is chosen by a dialector registry that driver subpackages populate
// at init time.
package repository

import "fmt"

// DatabaseConfig holds the connection settings of one named database, decoded
// from the raw per-connection configuration map.
type DatabaseConfig struct {
	// Type of database ("sqlite", "postgres", "mysql").
	Type string `yaml:"type" mapstructure:"type"`
	// Host and Port of the server (unused for sqlite).
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
	// Database is the database name, or the file path for sqlite.
	Database string `yaml:"database" mapstructure:"database"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	// SSLMode applies to postgres connections.
	SSLMode string `yaml:"sslmode" mapstructure:"sslmode"`
}

// PostgresDSN renders the config as a postgres connection string.
func (c DatabaseConfig) PostgresDSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslmode)
}

// MySQLDSN renders the config as a mysql connection string.
func (c DatabaseConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.Database)
}
