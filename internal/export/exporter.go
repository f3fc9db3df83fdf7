// Package export dumps relational tables to parquet files, optionally
// partitioned hive-style by the distinct values of one or more columns.
//
// A dump runs on a single dedicated connection and holds one cursor at a
// time. Rows stream through in bounded chunks, so memory use is capped by
// the chunk size regardless of table size. Partitions fail independently:
// one bad partition is recorded and the run moves on.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"qdt/internal/logging"
	"qdt/internal/progress"
	"qdt/internal/sink"
	"qdt/internal/source"
	"qdt/internal/typemap"
)

// DefaultChunkSize is the number of rows fetched and written per chunk
// when Options.ChunkSize is zero.
const DefaultChunkSize = 100000

// Options configures a dump run.
type Options struct {
	// Table is the source table to dump.
	Table string

	// Output is the destination: a directory for partitioned dumps, a
	// single parquet file path otherwise.
	Output string

	// PartitionBy lists columns whose distinct value combinations become
	// hive-style directory levels. Empty means one unpartitioned file.
	PartitionBy []string

	// OrderBy lists columns appended as an ORDER BY clause to every
	// partition query, preserving sort order in the output files.
	OrderBy []string

	// ChunkSize bounds rows per fetch and per parquet row group.
	ChunkSize int

	Logger   *logging.Logger
	Progress *progress.Tracker
}

// Exporter dumps one table from a source per its Options.
type Exporter struct {
	src  *source.Source
	opts Options
	log  *logging.Logger
}

// New creates an Exporter. A zero ChunkSize is defaulted; a nil Logger
// falls back to the package default.
func New(src *source.Source, opts Options) *Exporter {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	return &Exporter{src: src, opts: opts, log: log}
}

// Validate checks the dump configuration without touching the source.
// Identifiers are validated here; values are always bound as query
// parameters and need no checks.
func (e *Exporter) Validate() error {
	if e.opts.Table == "" {
		return configErrorf("table name is required")
	}
	if err := source.ValidateIdentifier(e.opts.Table); err != nil {
		return configErrorf("table name: %v", err)
	}
	seen := make(map[string]bool, len(e.opts.PartitionBy))
	for _, col := range e.opts.PartitionBy {
		if err := source.ValidateIdentifier(col); err != nil {
			return configErrorf("partition column: %v", err)
		}
		low := strings.ToLower(col)
		if seen[low] {
			return configErrorf("duplicate partition column %q", col)
		}
		seen[low] = true
	}
	for _, col := range e.opts.OrderBy {
		if err := source.ValidateIdentifier(col); err != nil {
			return configErrorf("sort column: %v", err)
		}
	}
	if e.opts.ChunkSize < 0 {
		return configErrorf("chunk size must be positive, got %d", e.opts.ChunkSize)
	}
	if e.opts.Output == "" {
		return configErrorf("output path is required")
	}
	if info, err := os.Stat(e.opts.Output); err == nil {
		if len(e.opts.PartitionBy) > 0 && !info.IsDir() {
			return configErrorf("output %s exists and is not a directory", e.opts.Output)
		}
		if len(e.opts.PartitionBy) == 0 && info.IsDir() {
			return configErrorf("output %s is a directory; an unpartitioned dump writes a single file", e.opts.Output)
		}
	}
	return nil
}

// Run performs the full dump and returns a summary. Once the export phase
// starts the summary is returned even on error, so callers can report
// partial progress.
func (e *Exporter) Run(ctx context.Context) (*Summary, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	sum := &Summary{
		RunID:       uuid.NewString(),
		StartedAt:   start,
		Partitioned: len(e.opts.PartitionBy) > 0,
	}

	conn, err := e.src.Conn(ctx)
	if err != nil {
		return nil, &QueryError{Op: "acquiring source connection", Err: err}
	}
	defer conn.Close()

	if e.opts.Progress != nil {
		if total, err := e.countRows(ctx, conn); err != nil {
			e.log.Debug("Row count for progress unavailable: %v", err)
		} else {
			e.opts.Progress.SetTotal(total)
		}
	}

	var stats Stats

	if sum.Partitioned {
		keys, err := e.discoverPartitions(ctx, conn)
		if err != nil {
			return nil, err
		}
		sum.PartitionsTotal = len(keys)

		// Path written so far, keyed by file path. Two distinct keys can
		// format to the same path when a partition column mixes types;
		// the later one fails instead of overwriting.
		written := make(map[string]string, len(keys))

		for _, key := range keys {
			rows, path, err := e.exportPartitionConn(ctx, conn, key, written, &stats)
			if err != nil {
				if ctx.Err() != nil {
					sum.Status = StatusFailed
					sum.finish(start)
					return sum, ctx.Err()
				}
				sum.PartitionsFailed++
				sum.Failures = append(sum.Failures, PartitionFailure{
					Partition: key.String(),
					Path:      path,
					Category:  Category(err),
					Error:     err.Error(),
				})
				e.log.Error("Partition %s failed: %v", key, err)
				continue
			}
			if rows == 0 {
				sum.PartitionsSkipped++
				e.log.Debug("Partition %s is empty, skipping", key)
				continue
			}
			sum.PartitionsExported++
			sum.FilesWritten++
			sum.RowsExported += rows
			e.log.Info("Dumped %s: %d rows", key, rows)
		}
	} else {
		dir := filepath.Dir(e.opts.Output)
		rows, err := e.streamToFile(ctx, conn, e.selectQuery(""), nil, dir, e.opts.Output, &stats)
		if err != nil {
			sum.Status = StatusFailed
			sum.Failures = append(sum.Failures, PartitionFailure{
				Partition: e.opts.Table,
				Path:      e.opts.Output,
				Category:  Category(err),
				Error:     err.Error(),
			})
			sum.finish(start)
			return sum, err
		}
		sum.RowsExported = rows
		if rows > 0 {
			sum.FilesWritten = 1
		}
	}

	if e.opts.Progress != nil {
		e.opts.Progress.Finish()
	}

	if sum.PartitionsFailed > 0 {
		sum.Status = StatusCompletedWithErrors
	} else {
		sum.Status = StatusSuccess
	}
	sum.finish(start)

	if sum.Partitioned {
		e.log.Info("Partitioned dump finished. Total rows: %d", sum.RowsExported)
	} else {
		e.log.Info("Dump finished. Total rows: %d", sum.RowsExported)
	}
	if e.log.IsDebug() {
		e.log.Debug("Dump profile: %s", &stats)
	}

	return sum, nil
}

// DiscoverPartitions returns one key per distinct combination of the
// partition column values, NULLs included. Order is engine-defined.
func (e *Exporter) DiscoverPartitions(ctx context.Context) ([]PartitionKey, error) {
	conn, err := e.src.Conn(ctx)
	if err != nil {
		return nil, &QueryError{Op: "acquiring source connection", Err: err}
	}
	defer conn.Close()
	return e.discoverPartitions(ctx, conn)
}

// ExportPartition dumps a single partition to its hive-style path and
// returns the number of rows written. Zero rows means no file and no
// directories were created.
func (e *Exporter) ExportPartition(ctx context.Context, key PartitionKey) (int64, error) {
	conn, err := e.src.Conn(ctx)
	if err != nil {
		return 0, &QueryError{Op: "acquiring source connection", Err: err}
	}
	defer conn.Close()
	var stats Stats
	rows, _, err := e.exportPartitionConn(ctx, conn, key, nil, &stats)
	return rows, err
}

func (e *Exporter) discoverPartitions(ctx context.Context, conn *sql.Conn) ([]PartitionKey, error) {
	d := e.src.Dialect
	cols := make([]string, len(e.opts.PartitionBy))
	for i, c := range e.opts.PartitionBy {
		cols[i] = d.QuoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s",
		strings.Join(cols, ", "), d.QuoteIdentifier(e.opts.Table))

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, &QueryError{Op: "discovering partitions", Err: err}
	}
	defer rows.Close()

	var keys []PartitionKey
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{Op: "scanning partition values", Err: err}
		}
		key := make(PartitionKey, len(cols))
		for i, c := range e.opts.PartitionBy {
			key[i] = KeyValue{Column: c, Value: vals[i]}
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Op: "discovering partitions", Err: err}
	}

	e.log.Info("Discovered %d partitions of %s by %s",
		len(keys), e.opts.Table, strings.Join(e.opts.PartitionBy, ", "))
	return keys, nil
}

// exportPartitionConn dumps one partition on the run connection. The
// written map, when non-nil, guards against two keys mapping to the same
// file path. The returned path is set whenever the partition got far
// enough to have one.
func (e *Exporter) exportPartitionConn(ctx context.Context, conn *sql.Conn, key PartitionKey, written map[string]string, st *Stats) (int64, string, error) {
	dir, err := key.Dir(e.opts.Output)
	if err != nil {
		return 0, "", configErrorf("partition %s: %v", key, err)
	}
	path := filepath.Join(dir, DataFileName)

	if prev, dup := written[path]; dup {
		return 0, path, configErrorf("partition %s maps to %s, already written by %s", key, path, prev)
	}

	where, args := e.partitionPredicate(key)
	rows, err := e.streamToFile(ctx, conn, e.selectQuery(where), args, dir, path, st)
	if err != nil {
		return 0, path, err
	}
	if rows > 0 && written != nil {
		written[path] = key.String()
	}
	return rows, path, nil
}

// partitionPredicate builds the WHERE clause matching key. NULL values
// become IS NULL predicates; everything else is bound as a parameter.
func (e *Exporter) partitionPredicate(key PartitionKey) (string, []any) {
	d := e.src.Dialect
	conds := make([]string, len(key))
	args := make([]any, 0, len(key))
	for i, kv := range key {
		if kv.Value == nil {
			conds[i] = d.QuoteIdentifier(kv.Column) + " IS NULL"
			continue
		}
		args = append(args, kv.Value)
		conds[i] = fmt.Sprintf("%s = %s", d.QuoteIdentifier(kv.Column), d.Placeholder(len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// selectQuery builds the partition query. The where fragment must be
// empty or start with " WHERE ".
func (e *Exporter) selectQuery(where string) string {
	d := e.src.Dialect
	query := fmt.Sprintf("SELECT * FROM %s%s", d.QuoteIdentifier(e.opts.Table), where)
	if len(e.opts.OrderBy) > 0 {
		cols := make([]string, len(e.opts.OrderBy))
		for i, c := range e.opts.OrderBy {
			cols[i] = d.QuoteIdentifier(c)
		}
		query += " ORDER BY " + strings.Join(cols, ", ")
	}
	return query
}

// streamToFile runs query and streams the result to path in chunks. The
// writer is created lazily on the first non-empty chunk, so an empty
// result leaves no file and no directories behind. A failure mid-write
// aborts the writer, which removes the partial file.
func (e *Exporter) streamToFile(ctx context.Context, conn *sql.Conn, query string, args []any, dir, path string, st *Stats) (int64, error) {
	queryStart := time.Now()
	rows, err := conn.QueryContext(ctx, query, args...)
	st.QueryTime += time.Since(queryStart)
	if err != nil {
		return 0, &QueryError{Op: "querying " + e.opts.Table, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, &QueryError{Op: "reading result columns", Err: err}
	}

	// Declared column types seed the schema; engines that cannot report
	// them leave every column to be inferred from the first chunk.
	hints := make([]typemap.Kind, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			hints[i] = e.src.Dialect.TypeKind(ct.DatabaseTypeName())
		}
	}

	var w *sink.Writer
	var written int64
	for {
		scanStart := time.Now()
		chunk, err := scanChunk(rows, len(cols), e.opts.ChunkSize)
		st.ScanTime += time.Since(scanStart)
		if err != nil {
			if w != nil {
				w.Abort()
			}
			return 0, &QueryError{Op: "scanning rows", Err: err}
		}
		if len(chunk) == 0 {
			break
		}

		writeStart := time.Now()
		if w == nil {
			schema, err := sink.Derive(cols, hints, chunk)
			if err != nil {
				st.WriteTime += time.Since(writeStart)
				return 0, classifySinkError(err, path)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				st.WriteTime += time.Since(writeStart)
				return 0, &WriteError{Path: dir, Err: err}
			}
			w, err = sink.NewWriter(path, schema)
			if err != nil {
				st.WriteTime += time.Since(writeStart)
				return 0, &WriteError{Path: path, Err: err}
			}
		}
		if err := w.WriteChunk(chunk); err != nil {
			w.Abort()
			st.WriteTime += time.Since(writeStart)
			return 0, classifySinkError(err, path)
		}
		st.WriteTime += time.Since(writeStart)

		written += int64(len(chunk))
		if e.opts.Progress != nil {
			e.opts.Progress.Add(int64(len(chunk)))
		}
	}
	if err := rows.Err(); err != nil {
		if w != nil {
			w.Abort()
		}
		return 0, &QueryError{Op: "reading rows", Err: err}
	}

	if w == nil {
		return 0, nil
	}
	closeStart := time.Now()
	if err := w.Close(); err != nil {
		os.Remove(path)
		st.WriteTime += time.Since(closeStart)
		return 0, &WriteError{Path: path, Err: err}
	}
	st.WriteTime += time.Since(closeStart)
	st.Rows += written
	return written, nil
}

// scanChunk reads up to limit rows from the open cursor. An empty result
// means the cursor is exhausted.
func scanChunk(rows *sql.Rows, width, limit int) ([][]any, error) {
	var chunk [][]any
	for i := 0; i < limit && rows.Next(); i++ {
		row := make([]any, width)
		ptrs := make([]any, width)
		for j := range row {
			ptrs[j] = &row[j]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		chunk = append(chunk, row)
	}
	return chunk, nil
}

func (e *Exporter) countRows(ctx context.Context, conn *sql.Conn) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", e.src.Dialect.QuoteIdentifier(e.opts.Table))
	var n int64
	if err := conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
