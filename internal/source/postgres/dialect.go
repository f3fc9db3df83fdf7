package postgres

import (
	"fmt"
	"net/url"
	"strings"

	"qdt/internal/source"
	"qdt/internal/typemap"
)

// Dialect implements source.Dialect for PostgreSQL.
type Dialect struct{}

var kindOf = typemap.ForEngine("postgres")

// QuoteIdentifier returns the identifier in double quotes, doubling any
// embedded quotes.
func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholder returns the positional bind marker. PostgreSQL uses "$1".
func (d *Dialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// TypeKind maps a reported column type to its logical kind.
func (d *Dialect) TypeKind(dbType string) typemap.Kind {
	return kindOf(dbType)
}

// buildDSN builds a postgres:// connection URL.
func buildDSN(cfg source.Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}

	q := url.Values{}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	q.Set("sslmode", sslMode)
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String()
}
