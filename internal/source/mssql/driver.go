// Package mssql provides the SQL Server source engine.
// It registers itself with the source registry on import.
package mssql

import (
	"database/sql"
	"fmt"

	"qdt/internal/source"

	_ "github.com/microsoft/go-mssqldb"
)

func init() {
	source.Register(&Driver{})
}

// Driver implements source.Driver for SQL Server databases.
type Driver struct{}

// Name returns the primary engine name.
func (d *Driver) Name() string {
	return "mssql"
}

// Aliases returns alternative names for this engine.
func (d *Driver) Aliases() []string {
	return []string{"sqlserver", "mssqlserver"}
}

// DefaultPort returns the conventional SQL Server port.
func (d *Driver) DefaultPort() int {
	return 1433
}

// Dialect returns the SQL Server dialect.
func (d *Driver) Dialect() source.Dialect {
	return &Dialect{}
}

// Open opens a connection pool for the configured server.
func (d *Driver) Open(cfg source.Config) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	return db, nil
}
