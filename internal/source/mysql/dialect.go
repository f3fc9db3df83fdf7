package mysql

import (
	"fmt"
	"net/url"
	"strings"

	"qdt/internal/source"
	"qdt/internal/typemap"
)

// Dialect implements source.Dialect for MySQL/MariaDB.
type Dialect struct{}

var kindOf = typemap.ForEngine("mysql")

// QuoteIdentifier returns the identifier in backticks, doubling any
// embedded backticks.
func (d *Dialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Placeholder returns the positional bind marker. MySQL uses "?".
func (d *Dialect) Placeholder(index int) string {
	return "?"
}

// TypeKind maps a reported column type to its logical kind.
func (d *Dialect) TypeKind(dbType string) typemap.Kind {
	return kindOf(dbType)
}

// buildDSN builds a go-sql-driver DSN:
// user:password@tcp(host:port)/database?params
// parseTime is always on so DATE/DATETIME/TIMESTAMP columns scan as time.Time.
func buildDSN(cfg source.Config) string {
	encodedUser := url.QueryEscape(cfg.User)
	encodedPassword := url.QueryEscape(cfg.Password)

	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("charset", "utf8mb4")

	switch strings.ToLower(cfg.SSLMode) {
	case "disable", "disabled", "false":
		params.Set("tls", "false")
	case "require", "required", "true":
		params.Set("tls", "true")
	case "skip-verify", "preferred":
		params.Set("tls", "skip-verify")
	}

	for k, v := range cfg.Params {
		params.Set(k, v)
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		encodedUser, encodedPassword, cfg.Host, cfg.Port, cfg.Database, params.Encode())
}
