package sink

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

// Writer streams chunks of rows into one parquet file. Each chunk becomes
// one row group, so chunk boundaries are visible in the file layout and
// memory stays bounded by the chunk size.
type Writer struct {
	path   string
	file   *os.File
	pw     *parquet.GenericWriter[map[string]any]
	schema *Schema
	rows   int64
}

// NewWriter creates the output file. The caller creates parent directories;
// callers only construct a Writer once they hold a non-empty first chunk, so
// a file on disk always means at least one row was written.
func NewWriter(path string, schema *Schema) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &Writer{
		path:   path,
		file:   f,
		pw:     parquet.NewGenericWriter[map[string]any](f, schema.parquet),
		schema: schema,
	}, nil
}

// Path returns the output file path.
func (w *Writer) Path() string { return w.path }

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int64 { return w.rows }

// WriteChunk appends one chunk as a single row group, preserving row order.
// Values incompatible with the derived schema fail with ErrSchemaMismatch.
func (w *Writer) WriteChunk(chunk [][]any) error {
	if len(chunk) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(chunk))
	for _, rec := range chunk {
		if len(rec) != len(w.schema.Columns) {
			return fmt.Errorf("%w: row has %d values for %d columns",
				ErrSchemaMismatch, len(rec), len(w.schema.Columns))
		}
		row := make(map[string]any, len(rec))
		for i, v := range rec {
			if v == nil {
				continue
			}
			nv, err := normalizeValue(v, w.schema.Columns[i].Kind)
			if err != nil {
				return fmt.Errorf("column %q: %w", w.schema.Columns[i].Name, err)
			}
			row[w.schema.Columns[i].Name] = nv
		}
		rows = append(rows, row)
	}

	if _, err := w.pw.Write(rows); err != nil {
		return fmt.Errorf("writing row group to %s: %w", w.path, err)
	}
	if err := w.pw.Flush(); err != nil {
		return fmt.Errorf("flushing row group to %s: %w", w.path, err)
	}
	w.rows += int64(len(chunk))
	return nil
}

// Close finalizes the parquet footer and closes the file.
func (w *Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("finalizing %s: %w", w.path, err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", w.path, err)
	}
	return nil
}

// Abort closes and removes the partial file. A scope that fails mid-write
// leaves nothing behind.
func (w *Writer) Abort() {
	w.pw.Close()
	w.file.Close()
	os.Remove(w.path)
}

// NumRows returns the row count recorded in a parquet file's footer.
func NumRows(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return pf.NumRows(), nil
}

// NumRowGroups returns the number of row groups in a parquet file.
func NumRowGroups(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return len(pf.RowGroups()), nil
}
