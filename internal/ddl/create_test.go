package ddl

import (
	"strings"
	"testing"

	"datascout/internal/schema"
)

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	td := TableDef{
		FQN: "app.events",
		Columns: []ColumnDef{
			{Name: "id", SQLType: "BIGINT", PrimaryKey: true},
			{Name: "ts", SQLType: "TIMESTAMPTZ", Default: "CURRENT_TIMESTAMP"},
			{Name: "payload", SQLType: "TEXT", Nullable: true},
		},
	}
	cases := []struct {
		name    string
		dialect Dialect
		in      TableDef
		wantSQL string
		wantErr string
	}{
		{
			name:    "postgres",
			dialect: Postgres,
			in:      td,
			wantSQL: "CREATE TABLE IF NOT EXISTS \"app\".\"events\" (\n" +
				"  \"id\" BIGINT NOT NULL,\n" +
				"  \"ts\" TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,\n" +
				"  \"payload\" TEXT,\n" +
				"  PRIMARY KEY (\"id\")\n" +
				");",
		},
		{
			name:    "mysql quotes with backticks",
			dialect: MySQL,
			in:      TableDef{FQN: "t", Columns: []ColumnDef{{Name: "we`ird", SQLType: "LONGTEXT", Nullable: true}}},
			wantSQL: "CREATE TABLE IF NOT EXISTS `t` (\n  `we``ird` LONGTEXT\n);",
		},
		{
			name:    "mssql guard",
			dialect: MSSQL,
			in:      TableDef{FQN: "dbo.t", Columns: []ColumnDef{{Name: "a", SQLType: "BIGINT", Nullable: true}}},
			wantSQL: "IF OBJECT_ID(N'[dbo].[t]', N'U') IS NULL\nBEGIN\n  CREATE TABLE [dbo].[t] (\n    [a] BIGINT\n  );\nEND;",
		},
		{
			name:    "sqlite escapes quotes",
			dialect: SQLite,
			in:      TableDef{FQN: `sch"x.t`, Columns: []ColumnDef{{Name: "a", SQLType: "TEXT", Nullable: true}}},
			wantSQL: "CREATE TABLE IF NOT EXISTS \"sch\"\"x\".\"t\" (\n  \"a\" TEXT\n);",
		},
		{name: "missing table", dialect: SQLite, in: TableDef{Columns: td.Columns}, wantErr: "table FQN"},
		{name: "no columns", dialect: SQLite, in: TableDef{FQN: "t"}, wantErr: "at least one column"},
		{name: "empty column name", dialect: SQLite, in: TableDef{FQN: "t", Columns: []ColumnDef{{SQLType: "TEXT"}}}, wantErr: "empty name"},
		{name: "missing type", dialect: SQLite, in: TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a"}}}, wantErr: "missing SQLType"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildCreateTableSQL(tc.dialect, tc.in)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCreateTableSQL: %v", err)
			}
			if got != tc.wantSQL {
				t.Fatalf("SQL mismatch\n got: %q\nwant: %q", got, tc.wantSQL)
			}
		})
	}
}

/*
TestFromSnapshot maps every type tag per dialect and turns key columns into a
NOT NULL primary key with an indexable type.
*/
func TestFromSnapshot(t *testing.T) {
	t.Parallel()

	snap := schema.Snapshot{
		{Name: "id", Type: schema.TypeString},
		{Name: "n", Type: schema.TypeInt},
		{Name: "x", Type: schema.TypeFloat},
		{Name: "ok", Type: schema.TypeBool},
		{Name: "at", Type: schema.TypeDatetime},
		{Name: "tags", Type: schema.TypeList},
		{Name: "gone", Type: schema.TypeNull},
	}
	want := map[Dialect][]string{
		SQLite:   {"TEXT", "INTEGER", "REAL", "INTEGER", "TEXT", "TEXT", "TEXT"},
		Postgres: {"TEXT", "BIGINT", "DOUBLE PRECISION", "BOOLEAN", "TIMESTAMPTZ", "TEXT", "TEXT"},
		MSSQL:    {"NVARCHAR(450)", "BIGINT", "FLOAT", "BIT", "DATETIME2", "NVARCHAR(MAX)", "NVARCHAR(MAX)"},
		MySQL:    {"VARCHAR(255)", "BIGINT", "DOUBLE PRECISION", "BOOLEAN", "DATETIME(6)", "LONGTEXT", "LONGTEXT"},
	}
	for d, types := range want {
		td, err := FromSnapshot(d, "out", snap, []string{"id"})
		if err != nil {
			t.Fatalf("%s: %v", d, err)
		}
		for i, c := range td.Columns {
			if c.SQLType != types[i] {
				t.Fatalf("%s %s = %s, want %s", d, c.Name, c.SQLType, types[i])
			}
			if c.PrimaryKey != (c.Name == "id") || c.Nullable == (c.Name == "id") {
				t.Fatalf("%s %s: key flags %+v", d, c.Name, c)
			}
		}
	}

	if _, err := FromSnapshot(SQLite, "out", snap, []string{"nope"}); err == nil {
		t.Fatal("expected an error for an unknown key column")
	}
	if _, err := FromSnapshot(SQLite, " ", snap, nil); err == nil {
		t.Fatal("expected an error for an empty table name")
	}
}
