package sqlite

import (
	"strings"

	"qdt/internal/typemap"
)

// Dialect implements source.Dialect for SQLite.
type Dialect struct{}

var kindOf = typemap.ForEngine("sqlite")

// QuoteIdentifier returns the identifier in double quotes, doubling any
// embedded quotes.
func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholder returns the positional bind marker. SQLite uses "?".
func (d *Dialect) Placeholder(index int) string {
	return "?"
}

// TypeKind maps a declared column type to its logical kind.
func (d *Dialect) TypeKind(dbType string) typemap.Kind {
	return kindOf(dbType)
}
