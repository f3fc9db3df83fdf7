// Package sqlite provides the SQLite source engine via the pure-Go
// modernc.org driver. It registers itself with the source registry on import.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"

	"qdt/internal/source"

	_ "modernc.org/sqlite"
)

func init() {
	source.Register(&Driver{})
}

// Driver implements source.Driver for SQLite database files.
type Driver struct{}

// Name returns the primary engine name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Aliases returns alternative names for this engine.
func (d *Driver) Aliases() []string {
	return []string{"sqlite3"}
}

// DefaultPort returns 0; SQLite is file-backed.
func (d *Driver) DefaultPort() int {
	return 0
}

// Dialect returns the SQLite dialect.
func (d *Driver) Dialect() source.Dialect {
	return &Dialect{}
}

// Open opens the database file. The driver creates missing files on first
// use, so a source that does not already exist is rejected here instead of
// surfacing later as an empty table.
func (d *Driver) Open(cfg source.Config) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite source requires a file path")
	}
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("database file %q: %w", cfg.Path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("database file %q is a directory", cfg.Path)
	}
	return sql.Open("sqlite", cfg.Path)
}
