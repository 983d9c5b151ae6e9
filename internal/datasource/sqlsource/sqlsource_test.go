package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"datascout/internal/config"
	"datascout/internal/datasource"
	"datascout/internal/sampling"
	"datascout/pkg/records"
)

// seed creates a SQLite database with ten items and returns its DSN.
func seed(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "items.db")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE items (id INTEGER, name TEXT, price REAL, note TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 10; i++ {
		var note any
		if i%2 == 1 {
			note = fmt.Sprintf("odd %d", i)
		}
		if _, err := db.Exec(`INSERT INTO items VALUES (?, ?, ?, ?)`, i, fmt.Sprintf("n%d", i), float64(i)+0.5, note); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return dsn
}

func load(t *testing.T, params config.Options, req datasource.Request) []records.Record {
	t.Helper()
	rows, err := datasource.Load(context.Background(), "sqlite", params, req)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return rows
}

func ids(rows []records.Record) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r["id"].(int64)
	}
	return out
}

func TestLoad_Table(t *testing.T) {
	t.Parallel()

	dsn := seed(t)
	got := load(t, config.Options{"dsn": dsn, "table": "items"}, datasource.Request{})
	if len(got) != 10 {
		t.Fatalf("got %d rows", len(got))
	}
	want := records.Record{"id": int64(1), "name": "n1", "price": 1.5, "note": "odd 1"}
	if !reflect.DeepEqual(got[1], want) {
		t.Fatalf("row 1 = %#v, want %#v", got[1], want)
	}
	if got[0]["note"] != nil {
		t.Fatalf("NULL should load as nil, got %#v", got[0]["note"])
	}
}

/*
TestLoad_Sample verifies that sampling counts the query result and keeps the
selected positions of the streamed cursor.
*/
func TestLoad_Sample(t *testing.T) {
	t.Parallel()

	dsn := seed(t)
	got := load(t, config.Options{"dsn": dsn, "table": "items"},
		datasource.Request{UseSample: true, Technique: sampling.Stratified, Budget: sampling.Budget{MaxRows: 5}})
	if want := []int64{0, 2, 4, 6, 8}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("stratified = %v, want %v", ids(got), want)
	}

	got = load(t, config.Options{"dsn": dsn, "query": "SELECT id FROM items WHERE id >= 5 ORDER BY id;"},
		datasource.Request{UseSample: true, Technique: sampling.Top, Budget: sampling.Budget{MaxRows: 2}})
	if want := []int64{5, 6}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("top = %v, want %v", ids(got), want)
	}
}

func TestLoad_BadQuery(t *testing.T) {
	t.Parallel()

	dsn := seed(t)
	if _, err := datasource.Load(context.Background(), "sqlite", config.Options{"dsn": dsn, "table": "missing"}, datasource.Request{}); err == nil {
		t.Fatalf("expected an error for a missing table")
	}
}

func TestQuery(t *testing.T) {
	t.Parallel()

	mssql := dialects[1].Quote
	tests := []struct {
		name    string
		params  config.Options
		quote   func(string) string
		want    string
		wantErr bool
	}{
		{"table", config.Options{"table": "main.items"}, doubleQuote, `SELECT * FROM "main"."items"`, false},
		{"mssql", config.Options{"table": "dbo.odd]name"}, mssql, `SELECT * FROM [dbo].[odd]]name]`, false},
		{"query", config.Options{"query": " SELECT 1; "}, doubleQuote, "SELECT 1", false},
		{"neither", config.Options{}, doubleQuote, "", true},
		{"both", config.Options{"query": "SELECT 1", "table": "t"}, doubleQuote, "", true},
	}
	for _, tc := range tests {
		got, err := Query(tc.params, tc.quote)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err = %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     any
		dbType string
		want   any
	}{
		{[]byte("12.50"), "DECIMAL", 12.5},
		{[]byte("abc"), "VARCHAR", "abc"},
		{"7.25", "NUMERIC", 7.25},
		{int32(4), "INT", int64(4)},
		{float32(0.5), "REAL", float64(0.5)},
		{nil, "TEXT", nil},
	}
	for _, tc := range tests {
		if got := Value(tc.in, tc.dbType); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Value(%#v, %s) = %#v, want %#v", tc.in, tc.dbType, got, tc.want)
		}
	}
}
