package export

import (
	"errors"
	"fmt"

	"qdt/internal/sink"
)

// ConfigError reports an invalid dump configuration. It is always fatal:
// nothing is queried or written once one is detected.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// QueryError reports a failure issuing a query against the source or
// reading its result set.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *QueryError) Unwrap() error { return e.Err }

// SchemaMismatchError reports row data that cannot be represented in the
// schema derived for the output file.
type SchemaMismatchError struct {
	Err error
}

func (e *SchemaMismatchError) Error() string { return e.Err.Error() }
func (e *SchemaMismatchError) Unwrap() error { return e.Err }

// WriteError reports a filesystem or encoder failure while producing an
// output file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("writing %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Category buckets an error for failure reports: "config", "query",
// "schema_mismatch", "write" or "other".
func Category(err error) string {
	var (
		ce *ConfigError
		qe *QueryError
		se *SchemaMismatchError
		we *WriteError
	)
	switch {
	case errors.As(err, &ce):
		return "config"
	case errors.As(err, &se):
		return "schema_mismatch"
	case errors.As(err, &we):
		return "write"
	case errors.As(err, &qe):
		return "query"
	default:
		return "other"
	}
}

// classifySinkError maps a sink failure to the dump error taxonomy. Schema
// mismatches keep their own bucket so a failure report distinguishes bad
// data from a bad disk.
func classifySinkError(err error, path string) error {
	if errors.Is(err, sink.ErrSchemaMismatch) {
		return &SchemaMismatchError{Err: err}
	}
	return &WriteError{Path: path, Err: err}
}
