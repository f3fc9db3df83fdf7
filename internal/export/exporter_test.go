package export

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"qdt/internal/logging"
	"qdt/internal/sink"
	"qdt/internal/source"
	_ "qdt/internal/source/sqlite"
)

func testLogger() *logging.Logger {
	l := logging.New()
	l.SetLevel(logging.LevelError)
	return l
}

// openSeeded creates a sqlite database file, runs the DDL and inserts
// against it, and opens it as a dump source.
func openSeeded(t *testing.T, ddl string, inserts ...string) *source.Source {
	t.Helper()

	path := filepath.Join(t.TempDir(), "src.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("seeding database: %v", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		t.Fatalf("creating table: %v", err)
	}
	for _, q := range inserts {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("seeding rows: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("closing seed connection: %v", err)
	}

	src, err := source.Open(context.Background(), source.Config{Type: "sqlite", Path: path}, testLogger())
	if err != nil {
		t.Fatalf("source.Open: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

const barsDDL = `CREATE TABLE bars (venue TEXT, sym TEXT, ts INTEGER, px REAL, note TEXT)`

// barRow mirrors the bars table for read-back. Every column is optional
// in the written schema; pointer fields distinguish NULL from zero.
type barRow struct {
	Note  *string `parquet:"note,optional"`
	Px    float64 `parquet:"px,optional"`
	Sym   string  `parquet:"sym,optional"`
	Ts    int64   `parquet:"ts,optional"`
	Venue *string `parquet:"venue,optional"`
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "existing.parquet")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{"missing table", Options{Output: "out"}, "table name is required"},
		{"injection in table", Options{Table: "bars; DROP TABLE bars", Output: "out"}, "table name"},
		{"injection in partition column", Options{Table: "bars", PartitionBy: []string{"p' OR '1'='1"}, Output: "out"}, "partition column"},
		{"duplicate partition column", Options{Table: "bars", PartitionBy: []string{"venue", "Venue"}, Output: "out"}, "duplicate partition column"},
		{"bad sort column", Options{Table: "bars", OrderBy: []string{"ts--"}, Output: "out"}, "sort column"},
		{"negative chunk size", Options{Table: "bars", ChunkSize: -1, Output: "out"}, "chunk size"},
		{"missing output", Options{Table: "bars"}, "output path is required"},
		{"partitioned output is a file", Options{Table: "bars", PartitionBy: []string{"venue"}, Output: file}, "not a directory"},
		{"unpartitioned output is a dir", Options{Table: "bars", Output: dir}, "single file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(nil, tt.opts).Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("error is %T, want *ConfigError", err)
			}
		})
	}

	valid := Options{
		Table:       "bars",
		PartitionBy: []string{"venue"},
		OrderBy:     []string{"ts"},
		Output:      filepath.Join(dir, "fresh"),
	}
	if err := New(nil, valid).Validate(); err != nil {
		t.Errorf("valid options rejected: %v", err)
	}
}

func TestRunUnpartitioned(t *testing.T) {
	src := openSeeded(t, barsDDL,
		`INSERT INTO bars VALUES ('binance', 'BTCUSDT', 3, 43000.5, NULL)`,
		`INSERT INTO bars VALUES ('binance', 'ETHUSDT', 1, 2300.25, 'open')`,
		`INSERT INTO bars VALUES ('okx', 'BTCUSDT', 2, 43001.0, NULL)`)

	out := filepath.Join(t.TempDir(), "bars.parquet")
	exp := New(src, Options{Table: "bars", OrderBy: []string{"ts"}, Output: out, Logger: testLogger()})

	sum, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Status != StatusSuccess || !sum.OK() {
		t.Errorf("Status = %q, want success", sum.Status)
	}
	if sum.Partitioned {
		t.Error("Partitioned = true for an unpartitioned dump")
	}
	if sum.RowsExported != 3 || sum.FilesWritten != 1 {
		t.Errorf("RowsExported = %d FilesWritten = %d, want 3 and 1", sum.RowsExported, sum.FilesWritten)
	}
	if sum.RunID == "" {
		t.Error("RunID is empty")
	}

	rows, err := parquet.ReadFile[barRow](out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("read %d rows, want 3", len(rows))
	}
	for i, want := range []int64{1, 2, 3} {
		if rows[i].Ts != want {
			t.Errorf("row %d ts = %d, want %d (sort order lost)", i, rows[i].Ts, want)
		}
	}
	if rows[0].Sym != "ETHUSDT" || rows[0].Note == nil || *rows[0].Note != "open" {
		t.Errorf("first row = %+v, want ETHUSDT with note open", rows[0])
	}
	if rows[1].Note != nil {
		t.Errorf("row 1 note = %q, want NULL", *rows[1].Note)
	}
}

func TestRunPartitioned(t *testing.T) {
	src := openSeeded(t, barsDDL,
		`INSERT INTO bars VALUES ('binance', 'BTCUSDT', 2, 43001.0, NULL)`,
		`INSERT INTO bars VALUES ('binance', 'BTCUSDT', 1, 43000.5, NULL)`,
		`INSERT INTO bars VALUES ('binance', 'ETHUSDT', 1, 2300.25, NULL)`,
		`INSERT INTO bars VALUES (NULL, 'BTCUSDT', 4, 43002.0, NULL)`)

	out := t.TempDir()
	exp := New(src, Options{
		Table:       "bars",
		PartitionBy: []string{"venue", "sym"},
		OrderBy:     []string{"ts"},
		Output:      out,
		Logger:      testLogger(),
	})

	sum, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Status != StatusSuccess {
		t.Fatalf("Status = %q, failures: %+v", sum.Status, sum.Failures)
	}
	if !sum.Partitioned {
		t.Error("Partitioned = false")
	}
	if sum.PartitionsTotal != 3 || sum.PartitionsExported != 3 || sum.FilesWritten != 3 {
		t.Errorf("partitions total/exported/files = %d/%d/%d, want 3/3/3",
			sum.PartitionsTotal, sum.PartitionsExported, sum.FilesWritten)
	}
	if sum.RowsExported != 4 {
		t.Errorf("RowsExported = %d, want 4", sum.RowsExported)
	}

	btc := filepath.Join(out, "venue=binance", "sym=BTCUSDT", "data.parquet")
	rows, err := parquet.ReadFile[barRow](btc)
	if err != nil {
		t.Fatalf("reading %s: %v", btc, err)
	}
	if len(rows) != 2 || rows[0].Ts != 1 || rows[1].Ts != 2 {
		t.Errorf("binance/BTCUSDT rows = %+v, want ts order 1, 2", rows)
	}

	eth := filepath.Join(out, "venue=binance", "sym=ETHUSDT", "data.parquet")
	rows, err = parquet.ReadFile[barRow](eth)
	if err != nil {
		t.Fatalf("reading %s: %v", eth, err)
	}
	if len(rows) != 1 || rows[0].Px != 2300.25 {
		t.Errorf("binance/ETHUSDT rows = %+v, want single ETH row", rows)
	}

	null := filepath.Join(out, "venue="+NullSegment, "sym=BTCUSDT", "data.parquet")
	rows, err = parquet.ReadFile[barRow](null)
	if err != nil {
		t.Fatalf("reading %s: %v", null, err)
	}
	if len(rows) != 1 || rows[0].Venue != nil {
		t.Errorf("NULL-venue rows = %+v, want one row with NULL venue", rows)
	}
	if rows[0].Ts != 4 {
		t.Errorf("NULL-venue ts = %d, want 4", rows[0].Ts)
	}
}

func TestRunChunkBoundaries(t *testing.T) {
	src := openSeeded(t, `CREATE TABLE seq (n INTEGER)`,
		`INSERT INTO seq VALUES (5), (3), (1), (4), (2)`)

	out := filepath.Join(t.TempDir(), "seq.parquet")
	exp := New(src, Options{
		Table:     "seq",
		OrderBy:   []string{"n"},
		ChunkSize: 2,
		Output:    out,
		Logger:    testLogger(),
	})

	sum, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.RowsExported != 5 {
		t.Errorf("RowsExported = %d, want 5", sum.RowsExported)
	}

	groups, err := sink.NumRowGroups(out)
	if err != nil {
		t.Fatalf("NumRowGroups: %v", err)
	}
	if groups != 3 {
		t.Errorf("row groups = %d, want 3 (chunks of 2, 2, 1)", groups)
	}

	type seqRow struct {
		N int64 `parquet:"n,optional"`
	}
	rows, err := parquet.ReadFile[seqRow](out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	for i, r := range rows {
		if r.N != int64(i+1) {
			t.Fatalf("row %d = %d, want %d (order lost across chunks)", i, r.N, i+1)
		}
	}
}

func TestRunEmptyTable(t *testing.T) {
	src := openSeeded(t, barsDDL)

	t.Run("unpartitioned", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "empty.parquet")
		sum, err := New(src, Options{Table: "bars", Output: out, Logger: testLogger()}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.RowsExported != 0 || sum.FilesWritten != 0 {
			t.Errorf("rows/files = %d/%d, want 0/0", sum.RowsExported, sum.FilesWritten)
		}
		if sum.Status != StatusSuccess {
			t.Errorf("Status = %q, want success", sum.Status)
		}
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Errorf("empty dump left a file at %s", out)
		}
	})

	t.Run("partitioned", func(t *testing.T) {
		out := t.TempDir()
		sum, err := New(src, Options{Table: "bars", PartitionBy: []string{"venue"}, Output: out, Logger: testLogger()}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.PartitionsTotal != 0 || sum.Status != StatusSuccess {
			t.Errorf("total = %d status = %q, want 0 and success", sum.PartitionsTotal, sum.Status)
		}
		entries, err := os.ReadDir(out)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("empty dump created %d entries under output", len(entries))
		}
	})
}

func TestExportPartitionNoMatch(t *testing.T) {
	src := openSeeded(t, barsDDL,
		`INSERT INTO bars VALUES ('binance', 'BTCUSDT', 1, 43000.5, NULL)`)

	out := t.TempDir()
	exp := New(src, Options{Table: "bars", PartitionBy: []string{"venue"}, Output: out, Logger: testLogger()})

	rows, err := exp.ExportPartition(context.Background(), PartitionKey{{Column: "venue", Value: "kraken"}})
	if err != nil {
		t.Fatalf("ExportPartition: %v", err)
	}
	if rows != 0 {
		t.Errorf("rows = %d, want 0", rows)
	}
	if _, err := os.Stat(filepath.Join(out, "venue=kraken")); !os.IsNotExist(err) {
		t.Error("empty partition created its directory")
	}
}

func TestDiscoverPartitions(t *testing.T) {
	src := openSeeded(t, barsDDL,
		`INSERT INTO bars VALUES ('binance', 'BTCUSDT', 1, 1.0, NULL)`,
		`INSERT INTO bars VALUES ('binance', 'BTCUSDT', 2, 2.0, NULL)`,
		`INSERT INTO bars VALUES ('okx', 'ETHUSDT', 3, 3.0, NULL)`,
		`INSERT INTO bars VALUES (NULL, 'ETHUSDT', 4, 4.0, NULL)`)

	exp := New(src, Options{
		Table:       "bars",
		PartitionBy: []string{"venue", "sym"},
		Output:      t.TempDir(),
		Logger:      testLogger(),
	})

	keys, err := exp.DiscoverPartitions(context.Background())
	if err != nil {
		t.Fatalf("DiscoverPartitions: %v", err)
	}

	got := make(map[string]bool, len(keys))
	for _, k := range keys {
		got[k.String()] = true
	}
	want := []string{
		"venue=binance/sym=BTCUSDT",
		"venue=okx/sym=ETHUSDT",
		"venue=" + NullSegment + "/sym=ETHUSDT",
	}
	if len(got) != len(want) {
		t.Fatalf("discovered %d keys %v, want %d", len(got), got, len(want))
	}
	for _, w := range want {
		if !got[w] {
			t.Errorf("missing partition %s", w)
		}
	}
}

func TestRunSchemaMismatchIsolation(t *testing.T) {
	// sqlite happily stores text in an INTEGER column; the declared type
	// drives the derived schema, so partition b cannot be written.
	src := openSeeded(t, `CREATE TABLE ticks (grp TEXT, v INTEGER)`,
		`INSERT INTO ticks VALUES ('a', 1)`,
		`INSERT INTO ticks VALUES ('a', 2)`,
		`INSERT INTO ticks VALUES ('b', 'oops')`)

	out := t.TempDir()
	sum, err := New(src, Options{Table: "ticks", PartitionBy: []string{"grp"}, Output: out, Logger: testLogger()}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Status != StatusCompletedWithErrors {
		t.Errorf("Status = %q, want completed_with_errors", sum.Status)
	}
	if sum.PartitionsExported != 1 || sum.PartitionsFailed != 1 {
		t.Errorf("exported/failed = %d/%d, want 1/1", sum.PartitionsExported, sum.PartitionsFailed)
	}
	if sum.RowsExported != 2 {
		t.Errorf("RowsExported = %d, want 2", sum.RowsExported)
	}
	if len(sum.Failures) != 1 {
		t.Fatalf("Failures = %+v, want one entry", sum.Failures)
	}
	f := sum.Failures[0]
	if f.Partition != "grp=b" || f.Category != "schema_mismatch" {
		t.Errorf("failure = %+v, want grp=b schema_mismatch", f)
	}

	if _, err := os.Stat(filepath.Join(out, "grp=a", "data.parquet")); err != nil {
		t.Errorf("healthy partition missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "grp=b", "data.parquet")); !os.IsNotExist(err) {
		t.Error("failed partition left a partial file behind")
	}
}

func TestRunPathCollision(t *testing.T) {
	// A typeless column keeps sqlite from coercing: the integer 1 and the
	// text '1' are distinct keys but format to the same directory.
	src := openSeeded(t, `CREATE TABLE mixed (p, v INTEGER)`,
		`INSERT INTO mixed VALUES (1, 10)`,
		`INSERT INTO mixed VALUES ('1', 20)`)

	out := t.TempDir()
	sum, err := New(src, Options{Table: "mixed", PartitionBy: []string{"p"}, Output: out, Logger: testLogger()}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.PartitionsTotal != 2 {
		t.Fatalf("PartitionsTotal = %d, want 2", sum.PartitionsTotal)
	}
	if sum.PartitionsExported != 1 || sum.PartitionsFailed != 1 {
		t.Errorf("exported/failed = %d/%d, want 1/1", sum.PartitionsExported, sum.PartitionsFailed)
	}
	if sum.RowsExported != 1 {
		t.Errorf("RowsExported = %d, want 1", sum.RowsExported)
	}
	if len(sum.Failures) != 1 || sum.Failures[0].Category != "config" {
		t.Errorf("Failures = %+v, want one config failure", sum.Failures)
	}
	if !strings.Contains(sum.Failures[0].Error, "already written") {
		t.Errorf("failure %q should mention the collision", sum.Failures[0].Error)
	}

	n, err := sink.NumRows(filepath.Join(out, "p=1", "data.parquet"))
	if err != nil {
		t.Fatalf("NumRows: %v", err)
	}
	if n != 1 {
		t.Errorf("winning partition has %d rows, want 1", n)
	}
}

func TestRunPathRejection(t *testing.T) {
	src := openSeeded(t, `CREATE TABLE paths (p TEXT, v INTEGER)`,
		`INSERT INTO paths VALUES ('ok', 1)`,
		`INSERT INTO paths VALUES ('bad/val', 2)`)

	out := t.TempDir()
	sum, err := New(src, Options{Table: "paths", PartitionBy: []string{"p"}, Output: out, Logger: testLogger()}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.PartitionsExported != 1 || sum.PartitionsFailed != 1 {
		t.Errorf("exported/failed = %d/%d, want 1/1", sum.PartitionsExported, sum.PartitionsFailed)
	}
	if len(sum.Failures) != 1 {
		t.Fatalf("Failures = %+v, want one entry", sum.Failures)
	}
	if sum.Failures[0].Category != "config" {
		t.Errorf("Category = %q, want config", sum.Failures[0].Category)
	}
	if !strings.Contains(sum.Failures[0].Error, "path separator") {
		t.Errorf("failure %q should mention the separator", sum.Failures[0].Error)
	}

	if _, err := os.Stat(filepath.Join(out, "p=ok", "data.parquet")); err != nil {
		t.Errorf("healthy partition missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "p=bad")); !os.IsNotExist(err) {
		t.Error("rejected partition created a directory")
	}
}

func TestRunCanceledContext(t *testing.T) {
	src := openSeeded(t, barsDDL,
		`INSERT INTO bars VALUES ('binance', 'BTCUSDT', 1, 1.0, NULL)`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(src, Options{Table: "bars", Output: filepath.Join(t.TempDir(), "x.parquet"), Logger: testLogger()}).Run(ctx)
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error %v should unwrap to context.Canceled", err)
	}
}
