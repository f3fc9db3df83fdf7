package oracle

import (
	"fmt"
	"strings"

	"qdt/internal/typemap"
)

// Dialect implements source.Dialect for Oracle.
type Dialect struct{}

var kindOf = typemap.ForEngine("oracle")

// QuoteIdentifier returns the identifier quoted and upper-cased. Oracle folds
// unquoted identifiers to upper case, so quoting the upper-cased form keeps
// "trades" and TRADES naming the same object.
func (d *Dialect) QuoteIdentifier(name string) string {
	upper := strings.ToUpper(name)
	return `"` + strings.ReplaceAll(upper, `"`, `""`) + `"`
}

// Placeholder returns the positional bind marker. Oracle uses ":1".
func (d *Dialect) Placeholder(index int) string {
	return fmt.Sprintf(":%d", index)
}

// TypeKind maps a reported column type to its logical kind.
func (d *Dialect) TypeKind(dbType string) typemap.Kind {
	return kindOf(dbType)
}
