package storage

import (
	"context"
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"datascout/internal/ddl"
	"datascout/internal/schema"
	"datascout/pkg/records"
)

/*
TestMaterialize_CreatesAndLoads creates the table from the snapshot, settles
null-typed columns from later rows and loads every row in batches.
*/
func TestMaterialize_CreatesAndLoads(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{dialect: ddl.Postgres}
	snap := schema.Snapshot{{Name: "id", Type: schema.TypeInt}, {Name: "note", Type: schema.TypeNull}}
	rows := []records.Record{
		{"id": int64(1), "note": nil},
		{"id": int64(2), "note": "b"},
		{"id": int64(3), "note": "c"},
	}
	cfg := Config{Table: "public.out", KeyColumns: []string{"id"}}

	n, err := Materialize(context.Background(), repo, cfg, snap, []string{"id", "note"}, rows, Options{BatchSize: 2, CreateTable: true})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if n != 3 || repo.batches != 2 {
		t.Fatalf("n = %d, batches = %d", n, repo.batches)
	}
	if len(repo.execs) != 1 {
		t.Fatalf("execs = %v", repo.execs)
	}
	for _, want := range []string{`"public"."out"`, `"id" BIGINT NOT NULL`, `"note" TEXT`, `PRIMARY KEY ("id")`} {
		if !strings.Contains(repo.execs[0], want) {
			t.Fatalf("DDL lacks %q:\n%s", want, repo.execs[0])
		}
	}
	if !reflect.DeepEqual(repo.columns, []string{"id", "note"}) {
		t.Fatalf("columns = %v", repo.columns)
	}
	want := [][]any{{int64(1), nil}, {int64(2), "b"}, {int64(3), "c"}}
	if !reflect.DeepEqual(repo.rows, want) {
		t.Fatalf("rows = %v, want %v", repo.rows, want)
	}
}

func TestMaterialize_InfersSnapshot(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	rows := []records.Record{{"b": "x", "a": 1.5}}
	if _, err := Materialize(context.Background(), repo, Config{Table: "t"}, nil, []string{"b", "a"}, rows, Options{}); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(repo.execs) != 0 {
		t.Fatalf("table created without CreateTable: %v", repo.execs)
	}
	if !reflect.DeepEqual(repo.columns, []string{"b", "a"}) || !reflect.DeepEqual(repo.rows, [][]any{{"x", 1.5}}) {
		t.Fatalf("columns = %v rows = %v", repo.columns, repo.rows)
	}
}

func TestMaterialize_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Materialize(context.Background(), &fakeRepo{}, Config{Table: "t"}, nil, nil, nil, Options{}); err == nil {
		t.Fatal("expected an error without columns")
	}

	snap := schema.Snapshot{{Name: "a", Type: schema.TypeInt}}
	_, err := Materialize(context.Background(), &fakeRepo{}, Config{Table: "t", KeyColumns: []string{"zz"}}, snap, nil,
		[]records.Record{{"a": 1}}, Options{CreateTable: true})
	if err == nil || !strings.Contains(err.Error(), "zz") {
		t.Fatalf("err = %v, want unknown key column", err)
	}

	repo := &fakeRepo{failAt: 2}
	rows := []records.Record{{"a": 1}, {"a": 2}, {"a": 3}}
	n, err := Materialize(context.Background(), repo, Config{Table: "t"}, snap, nil, rows, Options{BatchSize: 1})
	if err == nil || !strings.Contains(err.Error(), "copy failed") {
		t.Fatalf("err = %v, want copy failure", err)
	}
	if n != 1 {
		t.Fatalf("n = %d, want 1", n)
	}
}

func TestSQLValue(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		v    any
		tag  string
		want any
	}{
		{nil, schema.TypeInt, nil},
		{3, schema.TypeInt, int64(3)},
		{json.Number("7"), schema.TypeInt, int64(7)},
		{4.0, schema.TypeInt, int64(4)},
		{4.5, schema.TypeInt, "4.5"},
		{json.Number("2.5"), schema.TypeFloat, 2.5},
		{math.NaN(), schema.TypeFloat, nil},
		{int64(2), schema.TypeFloat, 2.0},
		{true, schema.TypeBool, true},
		{"yes", schema.TypeBool, "yes"},
		{at, schema.TypeDatetime, at},
		{at, schema.TypeString, "2024-01-02T03:04:05Z"},
		{90 * time.Second, schema.TypeDuration, "1m30s"},
		{[]any{1, "a"}, schema.TypeList, `[1,"a"]`},
		{map[string]any{"k": 1}, schema.TypeDict, `{"k":1}`},
		{12, schema.TypeString, "12"},
	}
	for _, tc := range tests {
		if got := sqlValue(tc.v, tc.tag); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("sqlValue(%#v, %s) = %#v, want %#v", tc.v, tc.tag, got, tc.want)
		}
	}
}
