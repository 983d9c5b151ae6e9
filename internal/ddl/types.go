package ddl

import (
	"strings"

	"datascout/internal/schema"
)

// ColumnDef describes a single column of a table definition.
//
// Name is unquoted; quoting happens at render time. Default is emitted as a
// raw SQL expression.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the dotted table name (e.g. "schema.table") and the ordered
// columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect selects identifier quoting, type names and the create-if-missing
// form of one SQL backend.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MSSQL    Dialect = "mssql"
	MySQL    Dialect = "mysql"
)

// MapType maps a schema type tag onto a column type. Tags without a natural
// column type (lists, dicts, nulls) are stored as text.
func (d Dialect) MapType(tag string) string {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case schema.TypeInt:
		switch d {
		case SQLite:
			return "INTEGER"
		}
		return "BIGINT"
	case schema.TypeFloat:
		switch d {
		case SQLite:
			return "REAL"
		case MSSQL:
			return "FLOAT"
		}
		return "DOUBLE PRECISION"
	case schema.TypeBool:
		switch d {
		case SQLite:
			return "INTEGER"
		case MSSQL:
			return "BIT"
		}
		return "BOOLEAN"
	case schema.TypeDatetime:
		switch d {
		case SQLite:
			return "TEXT"
		case MSSQL:
			return "DATETIME2"
		case MySQL:
			return "DATETIME(6)"
		}
		return "TIMESTAMPTZ"
	}
	switch d {
	case MSSQL:
		return "NVARCHAR(MAX)"
	case MySQL:
		return "LONGTEXT"
	}
	return "TEXT"
}

// QuoteIdent quotes a single identifier segment.
func (d Dialect) QuoteIdent(id string) string {
	switch d {
	case MSSQL:
		return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
	case MySQL:
		return "`" + strings.ReplaceAll(id, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// QuoteFQN quotes every segment of a dotted name; empty segments are dropped.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

// QuoteIdents quotes each of cols.
func (d Dialect) QuoteIdents(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.QuoteIdent(c)
	}
	return out
}
