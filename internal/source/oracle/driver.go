// Package oracle provides the Oracle source engine via godror.
// It registers itself with the source registry on import. godror needs cgo;
// in a CGO_ENABLED=0 build the engine stays registered but Open reports that
// Oracle support is unavailable.
package oracle

import "qdt/internal/source"

func init() {
	source.Register(&Driver{})
}

// Driver implements source.Driver for Oracle databases.
type Driver struct{}

// Name returns the primary engine name.
func (d *Driver) Name() string {
	return "oracle"
}

// Aliases returns alternative names for this engine.
func (d *Driver) Aliases() []string {
	return []string{"ora", "oracledb"}
}

// DefaultPort returns the conventional Oracle listener port.
func (d *Driver) DefaultPort() int {
	return 1521
}

// Dialect returns the Oracle dialect.
func (d *Driver) Dialect() source.Dialect {
	return &Dialect{}
}
