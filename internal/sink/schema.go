// Package sink writes row streams to parquet files. The schema for a file is
// fixed once, derived from engine type hints and the first chunk's values;
// later chunks must conform or the write fails with ErrSchemaMismatch.
package sink

import (
	"errors"
	"fmt"
	"time"

	"qdt/internal/typemap"

	"github.com/parquet-go/parquet-go"
)

// ErrSchemaMismatch reports a value or row shape that is incompatible with
// the schema derived from the first chunk.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Column is one column of a derived schema.
type Column struct {
	Name string
	Kind typemap.Kind
}

// Schema is a fixed output schema for one parquet file.
type Schema struct {
	Columns []Column
	parquet *parquet.Schema
}

// Derive fixes the schema for a file from the column names, the engine's
// type hints, and the values of the first chunk. Columns whose hint is
// Unknown take the kind of their first non-NULL value; columns that stay
// Unknown after that (all NULL in the first chunk) become String. Every
// column is optional so NULLs are representable throughout.
func Derive(names []string, hints []typemap.Kind, firstChunk [][]any) (*Schema, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("deriving schema: no columns")
	}

	kinds := make([]typemap.Kind, len(names))
	for i := range names {
		if i < len(hints) {
			kinds[i] = hints[i]
		}
	}

	for _, row := range firstChunk {
		if len(row) != len(names) {
			return nil, fmt.Errorf("%w: row has %d values for %d columns", ErrSchemaMismatch, len(row), len(names))
		}
		for i, v := range row {
			if kinds[i] == typemap.Unknown && v != nil {
				kinds[i] = kindOfValue(v)
			}
		}
	}

	columns := make([]Column, len(names))
	group := parquet.Group{}
	for i, name := range names {
		kind := kinds[i]
		if kind == typemap.Unknown {
			kind = typemap.String
		}
		columns[i] = Column{Name: name, Kind: kind}
		group[name] = parquet.Optional(nodeFor(kind))
	}

	return &Schema{
		Columns: columns,
		parquet: parquet.NewSchema("root", group),
	}, nil
}

// kindOfValue classifies a scanned value. database/sql drivers only hand
// back int64, float64, bool, []byte, string and time.Time.
func kindOfValue(v any) typemap.Kind {
	switch v.(type) {
	case bool:
		return typemap.Bool
	case int64:
		return typemap.Int
	case float64:
		return typemap.Float
	case string:
		return typemap.String
	case []byte:
		return typemap.Bytes
	case time.Time:
		return typemap.Time
	default:
		return typemap.String
	}
}

func nodeFor(kind typemap.Kind) parquet.Node {
	switch kind {
	case typemap.Bool:
		return parquet.Leaf(parquet.BooleanType)
	case typemap.Int:
		return parquet.Int(64)
	case typemap.Float:
		return parquet.Leaf(parquet.DoubleType)
	case typemap.Bytes:
		return parquet.Leaf(parquet.ByteArrayType)
	case typemap.Time:
		return parquet.Timestamp(parquet.Millisecond)
	default:
		return parquet.String()
	}
}

// normalizeValue converts a scanned value to the physical representation of
// the column's kind. NULLs never reach this function. Widening conversions
// (int to float, bytes to string) are allowed; anything else is a mismatch.
func normalizeValue(v any, kind typemap.Kind) (any, error) {
	switch kind {
	case typemap.Bool:
		switch x := v.(type) {
		case bool:
			return x, nil
		// dynamic-typing engines store booleans as 0/1 integers
		case int64:
			return x != 0, nil
		}
	case typemap.Int:
		if x, ok := v.(int64); ok {
			return x, nil
		}
	case typemap.Float:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		}
	case typemap.String:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		}
	case typemap.Bytes:
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			return []byte(x), nil
		}
	case typemap.Time:
		if x, ok := v.(time.Time); ok {
			return x.UnixMilli(), nil
		}
	}
	return nil, fmt.Errorf("%w: %T value in %s column", ErrSchemaMismatch, v, kind)
}
