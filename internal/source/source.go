// Package source provides pluggable read-only database engine drivers.
// Each engine (SQLite, PostgreSQL, MySQL, SQL Server, Oracle) implements the
// Driver interface and registers itself on import.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"qdt/internal/logging"
	"qdt/internal/typemap"
)

// Dialect captures the SQL surface that differs between engines.
type Dialect interface {
	// QuoteIdentifier returns the engine-safe quoted form of an identifier.
	QuoteIdentifier(name string) string

	// Placeholder returns the bind-parameter marker for the given 1-based
	// position ("?", "$1", "@p1", ":1").
	Placeholder(index int) string

	// TypeKind maps the engine's reported column type name to a logical kind.
	TypeKind(dbType string) typemap.Kind
}

// Driver represents a pluggable database engine.
//
// To add a new engine:
// 1. Create a package under internal/source/<engine>/
// 2. Implement the Driver interface
// 3. Register via init(): source.Register(&Driver{})
type Driver interface {
	// Name returns the primary engine name (e.g. "postgres").
	Name() string

	// Aliases returns alternative names for this engine.
	Aliases() []string

	// DefaultPort returns the engine's conventional port, 0 for file engines.
	DefaultPort() int

	// Dialect returns the SQL dialect for this engine.
	Dialect() Dialect

	// Open opens the database described by cfg without pinging it.
	Open(cfg Config) (*sql.DB, error)
}

// Source is an open connection to a readable database.
type Source struct {
	DB      *sql.DB
	Engine  string
	Dialect Dialect
}

// Open connects to the source described by cfg, verifies the connection with
// a ping, and logs the connection. The pool is capped at a single connection:
// exports run every statement on one dedicated conn.
func Open(ctx context.Context, cfg Config, log *logging.Logger) (*Source, error) {
	if log == nil {
		log = logging.Default()
	}

	drv, err := lookup(cfg.Type)
	if err != nil {
		return nil, err
	}

	if cfg.Port == 0 {
		cfg.Port = drv.DefaultPort()
	}

	db, err := drv.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s source: %w", drv.Name(), err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s source: %w", drv.Name(), err)
	}

	if cfg.Path != "" {
		log.Info("Connected to %s source: %s", drv.Name(), cfg.Path)
	} else {
		log.Info("Connected to %s source: %s:%d/%s", drv.Name(), cfg.Host, cfg.Port, cfg.Database)
	}

	return &Source{DB: db, Engine: drv.Name(), Dialect: drv.Dialect()}, nil
}

// Conn returns a dedicated connection from the pool. The caller owns it and
// must Close it to return it to the pool.
func (s *Source) Conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := s.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return conn, nil
}

// Close closes the underlying pool.
func (s *Source) Close() error {
	return s.DB.Close()
}
