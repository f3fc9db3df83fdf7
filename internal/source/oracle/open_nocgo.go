//go:build !cgo

package oracle

import (
	"database/sql"
	"fmt"

	"qdt/internal/source"
)

// Open reports that Oracle support was compiled out. godror needs cgo.
func (d *Driver) Open(cfg source.Config) (*sql.DB, error) {
	return nil, fmt.Errorf("oracle support requires a cgo-enabled build")
}
