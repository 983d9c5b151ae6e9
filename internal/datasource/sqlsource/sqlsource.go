// Package sqlsource implements the database/sql connectors: sqlite, mssql and
// mysql. A sample counts the rows of the query first and then keeps the
// selected positions while streaming the cursor.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"datascout/internal/config"
	"datascout/internal/datasource"
	"datascout/pkg/records"
)

// Dialect is what differs between the supported databases.
type Dialect struct {
	Kind   string
	Title  string
	Driver string
	// Quote quotes one identifier part.
	Quote func(string) string
}

var dialects = []Dialect{
	{Kind: "sqlite", Title: "SQLite database", Driver: "sqlite", Quote: doubleQuote},
	{Kind: "mssql", Title: "Microsoft SQL Server", Driver: "sqlserver", Quote: func(s string) string {
		return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
	}},
	{Kind: "mysql", Title: "MySQL", Driver: "mysql", Quote: func(s string) string {
		return "`" + strings.ReplaceAll(s, "`", "``") + "`"
	}},
}

func doubleQuote(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

// Fields are the parameters shared by every database connector.
var Fields = []datasource.Field{
	{Key: "dsn", Name: "Connection string", Type: "string", Required: true},
	{Key: "query", Name: "Query", Type: "string", Help: "A SELECT statement. Either query or table is required."},
	{Key: "table", Name: "Table", Type: "string", Help: "Read a whole table, optionally schema qualified."},
}

func init() {
	for _, d := range dialects {
		d := d
		datasource.Register(d.Kind, datasource.Descriptor{
			Title:  d.Title,
			Fields: Fields,
			New: func(p config.Options) (datasource.Connector, error) {
				q, err := Query(p, d.Quote)
				if err != nil {
					return nil, err
				}
				return &Connector{dialect: d, dsn: p.String("dsn", ""), query: q}, nil
			},
		})
	}
}

// Query returns the statement described by params: query verbatim, or a
// SELECT over table with every dotted part quoted.
func Query(p config.Options, quote func(string) string) (string, error) {
	q := strings.TrimSpace(p.String("query", ""))
	table := strings.TrimSpace(p.String("table", ""))
	switch {
	case q != "" && table != "":
		return "", fmt.Errorf("query and table are mutually exclusive")
	case q != "":
		return strings.TrimRight(q, "; \n\t"), nil
	case table != "":
		parts := strings.Split(table, ".")
		for i, part := range parts {
			parts[i] = quote(part)
		}
		return "SELECT * FROM " + strings.Join(parts, "."), nil
	}
	return "", fmt.Errorf("one of query or table is required")
}

// CountQuery wraps q into a row count.
func CountQuery(q string) string {
	return "SELECT COUNT(*) FROM (" + q + ") AS src"
}

// Connector reads one query result.
type Connector struct {
	dialect Dialect
	dsn     string
	query   string
}

// Load implements datasource.Connector.
func (c *Connector) Load(ctx context.Context, req datasource.Request) ([]records.Record, error) {
	db, err := sql.Open(c.dialect.Driver, c.dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	total := 0
	if req.UseSample {
		if err := db.QueryRowContext(ctx, CountQuery(c.query)).Scan(&total); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}

	rows, err := db.QueryContext(ctx, c.query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cur, err := Scanner(rows)
	if err != nil {
		return nil, err
	}
	out, err := datasource.Collect(ctx, req, total, cur)
	if err != nil {
		return nil, err
	}
	return out, rows.Err()
}

// Scanner turns a *sql.Rows into a datasource.Cursor.
func Scanner(rows *sql.Rows) (datasource.Cursor, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	vals := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	return func() (records.Record, bool, error) {
		if !rows.Next() {
			return nil, false, rows.Err()
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, false, fmt.Errorf("scan: %w", err)
		}
		rec := make(records.Record, len(types))
		for i, ct := range types {
			rec[ct.Name()] = Value(vals[i], ct.DatabaseTypeName())
		}
		return rec, true, nil
	}, nil
}

// Value normalizes a scanned driver value. Byte slices become strings, and
// decimals, which drivers hand over as text, become float64 when they parse.
func Value(v any, dbType string) any {
	switch x := v.(type) {
	case []byte:
		s := string(x)
		if isDecimal(dbType) {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
		return s
	case string:
		if isDecimal(dbType) {
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f
			}
		}
		return x
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	}
	return v
}

func isDecimal(t string) bool {
	switch strings.ToUpper(t) {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY", "NEWDECIMAL":
		return true
	}
	return false
}
