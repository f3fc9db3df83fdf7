//go:build cgo

package oracle

import (
	"database/sql"
	"fmt"
	"net/url"

	"qdt/internal/source"

	_ "github.com/godror/godror"
)

// Open opens a connection pool for the configured server.
// Larger prefetch sizes help the sequential full-table reads exports do.
func (d *Driver) Open(cfg source.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s/%s@%s:%d/%s?prefetchCount=5000&fetchArraySize=5000",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password),
		cfg.Host, cfg.Port, cfg.Database)

	db, err := sql.Open("godror", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	return db, nil
}
