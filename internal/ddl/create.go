// Package ddl renders CREATE TABLE statements for the materialization sinks.
// A TableDef is derived from the final schema snapshot of a run and rendered
// in the dialect of the target backend.
package ddl

import (
	"fmt"
	"strings"

	"datascout/internal/schema"
)

// FromSnapshot builds a table definition from a schema snapshot. Every column
// is nullable because converged records carry nil for missing keys. Columns
// named in keys form the primary key and become NOT NULL.
func FromSnapshot(d Dialect, table string, s schema.Snapshot, keys []string) (TableDef, error) {
	if strings.TrimSpace(table) == "" {
		return TableDef{}, fmt.Errorf("ddl: table FQN must not be empty")
	}
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	td := TableDef{FQN: table, Columns: make([]ColumnDef, 0, len(s))}
	for _, c := range s {
		typ := d.MapType(c.Type)
		if isKey[c.Name] {
			typ = keyType(d, typ)
		}
		td.Columns = append(td.Columns, ColumnDef{
			Name:       c.Name,
			SQLType:    typ,
			Nullable:   !isKey[c.Name],
			PrimaryKey: isKey[c.Name],
		})
		delete(isKey, c.Name)
	}
	for k := range isKey {
		return TableDef{}, fmt.Errorf("ddl: key column %q is not in the schema", k)
	}
	return td, nil
}

// keyType narrows unbounded text types that cannot be indexed.
func keyType(d Dialect, typ string) string {
	switch {
	case d == MSSQL && typ == "NVARCHAR(MAX)":
		return "NVARCHAR(450)"
	case d == MySQL && typ == "LONGTEXT":
		return "VARCHAR(255)"
	}
	return typ
}

// BuildCreateTableSQL renders t in dialect d. The statement is idempotent:
// CREATE TABLE IF NOT EXISTS, or an OBJECT_ID guard on SQL Server.
//
//	CREATE TABLE IF NOT EXISTS "t" (
//	  "id" BIGINT NOT NULL,
//	  "name" TEXT,
//	  PRIMARY KEY ("id")
//	);
func BuildCreateTableSQL(d Dialect, t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s ddl: column %s missing SQLType", d, name)
		}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.QuoteIdent(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	quoted := d.QuoteFQN(fqn)
	if d == MSSQL {
		return fmt.Sprintf(
			"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
			strings.ReplaceAll(quoted, "'", "''"),
			quoted,
			strings.Join(cols, ",\n    "),
		), nil
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		quoted,
		strings.Join(cols, ",\n  "),
	), nil
}
