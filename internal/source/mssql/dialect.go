package mssql

import (
	"fmt"
	"net/url"
	"strings"

	"qdt/internal/source"
	"qdt/internal/typemap"
)

// Dialect implements source.Dialect for SQL Server.
type Dialect struct{}

var kindOf = typemap.ForEngine("mssql")

// QuoteIdentifier returns the identifier in brackets, doubling any embedded
// closing brackets.
func (d *Dialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// Placeholder returns the positional bind marker. SQL Server uses "@p1".
func (d *Dialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index)
}

// TypeKind maps a reported column type to its logical kind.
func (d *Dialect) TypeKind(dbType string) typemap.Kind {
	return kindOf(dbType)
}

// buildDSN builds a sqlserver:// connection URL.
func buildDSN(cfg source.Config) string {
	q := url.Values{}
	q.Set("database", cfg.Database)

	switch strings.ToLower(cfg.SSLMode) {
	case "disable", "disabled", "false":
		q.Set("encrypt", "disable")
	case "require", "required", "true":
		q.Set("encrypt", "true")
	case "", "prefer", "preferred":
		q.Set("encrypt", "false")
		q.Set("trustservercertificate", "true")
	}

	for k, v := range cfg.Params {
		q.Set(k, v)
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		RawQuery: q.Encode(),
	}
	return u.String()
}
