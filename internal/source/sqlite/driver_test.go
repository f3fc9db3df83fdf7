package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"qdt/internal/source"
	"qdt/internal/typemap"
)

func TestDialect(t *testing.T) {
	d := &Dialect{}

	tests := []struct {
		name     string
		method   func() string
		expected string
	}{
		{"QuoteIdentifier", func() string { return d.QuoteIdentifier("trades") }, `"trades"`},
		{"QuoteIdentifierEmbedded", func() string { return d.QuoteIdentifier(`tr"des`) }, `"tr""des"`},
		{"Placeholder", func() string { return d.Placeholder(1) }, "?"},
		{"PlaceholderLater", func() string { return d.Placeholder(7) }, "?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.method(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}

	if k := d.TypeKind("INTEGER"); k != typemap.Int {
		t.Errorf("TypeKind(INTEGER) = %v, want Int", k)
	}
	if k := d.TypeKind("VARCHAR(20)"); k != typemap.String {
		t.Errorf("TypeKind(VARCHAR(20)) = %v, want String", k)
	}
}

func TestOpenMissingFile(t *testing.T) {
	d := &Driver{}

	if _, err := d.Open(source.Config{Path: ""}); err == nil {
		t.Error("Open with empty path expected error")
	}
	if _, err := d.Open(source.Config{Path: filepath.Join(t.TempDir(), "absent.db")}); err == nil {
		t.Error("Open with missing file expected error")
	}
	if _, err := d.Open(source.Config{Path: t.TempDir()}); err == nil {
		t.Error("Open with directory expected error")
	}
}

func TestOpenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.db")

	// Seed a real database file first.
	seed, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("seeding database: %v", err)
	}
	if _, err := seed.Exec(`CREATE TABLE klines (symbol TEXT, close REAL)`); err != nil {
		t.Fatalf("creating table: %v", err)
	}
	if _, err := seed.Exec(`INSERT INTO klines VALUES ('BTCUSDT', 43000.5)`); err != nil {
		t.Fatalf("inserting row: %v", err)
	}
	if err := seed.Close(); err != nil {
		t.Fatalf("closing seed connection: %v", err)
	}

	src, err := source.Open(context.Background(), source.Config{Type: "sqlite", Path: path}, nil)
	if err != nil {
		t.Fatalf("source.Open: %v", err)
	}
	defer src.Close()

	if src.Engine != "sqlite" {
		t.Errorf("Engine = %q, want sqlite", src.Engine)
	}

	var n int
	if err := src.DB.QueryRow(`SELECT COUNT(*) FROM klines`).Scan(&n); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if n != 1 {
		t.Errorf("row count = %d, want 1", n)
	}
}

func TestDedicatedConn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conn.db")
	seed, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("seeding database: %v", err)
	}
	if _, err := seed.Exec(`CREATE TABLE t (x INTEGER)`); err != nil {
		t.Fatalf("creating table: %v", err)
	}
	seed.Close()

	ctx := context.Background()
	src, err := source.Open(ctx, source.Config{Type: "sqlite", Path: path}, nil)
	if err != nil {
		t.Fatalf("source.Open: %v", err)
	}
	defer src.Close()

	conn, err := src.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn: %v", err)
	}
	defer conn.Close()

	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatalf("querying on dedicated conn: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}
