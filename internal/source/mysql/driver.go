// Package mysql provides the MySQL/MariaDB source engine.
// It registers itself with the source registry on import.
package mysql

import (
	"database/sql"
	"fmt"

	"qdt/internal/source"

	_ "github.com/go-sql-driver/mysql"
)

func init() {
	source.Register(&Driver{})
}

// Driver implements source.Driver for MySQL/MariaDB databases.
type Driver struct{}

// Name returns the primary engine name.
func (d *Driver) Name() string {
	return "mysql"
}

// Aliases returns alternative names for this engine.
func (d *Driver) Aliases() []string {
	return []string{"mariadb", "maria"}
}

// DefaultPort returns the conventional MySQL port.
func (d *Driver) DefaultPort() int {
	return 3306
}

// Dialect returns the MySQL dialect.
func (d *Driver) Dialect() source.Dialect {
	return &Dialect{}
}

// Open opens a connection pool for the configured server.
func (d *Driver) Open(cfg source.Config) (*sql.DB, error) {
	dsn := buildDSN(cfg)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	return db, nil
}
