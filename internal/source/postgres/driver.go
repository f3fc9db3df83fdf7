// Package postgres provides the PostgreSQL source engine via pgx's
// database/sql adapter. It registers itself with the source registry on import.
package postgres

import (
	"database/sql"
	"fmt"

	"qdt/internal/source"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func init() {
	source.Register(&Driver{})
}

// Driver implements source.Driver for PostgreSQL databases.
type Driver struct{}

// Name returns the primary engine name.
func (d *Driver) Name() string {
	return "postgres"
}

// Aliases returns alternative names for this engine.
func (d *Driver) Aliases() []string {
	return []string{"postgresql", "pg"}
}

// DefaultPort returns the conventional PostgreSQL port.
func (d *Driver) DefaultPort() int {
	return 5432
}

// Dialect returns the PostgreSQL dialect.
func (d *Driver) Dialect() source.Dialect {
	return &Dialect{}
}

// Open opens a connection pool for the configured server.
func (d *Driver) Open(cfg source.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	return db, nil
}
