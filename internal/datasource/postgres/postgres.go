// Package postgres implements the postgres connector on a native pgx
// connection.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"datascout/internal/config"
	"datascout/internal/datasource"
	"datascout/internal/datasource/sqlsource"
	"datascout/pkg/records"
)

func init() {
	datasource.Register("postgres", datasource.Descriptor{
		Title:  "PostgreSQL",
		Fields: sqlsource.Fields,
		New: func(p config.Options) (datasource.Connector, error) {
			q, err := sqlsource.Query(p, Ident)
			if err != nil {
				return nil, err
			}
			return &Connector{dsn: p.String("dsn", ""), query: q}, nil
		},
	})
}

// Ident quotes one identifier part.
func Ident(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

// Connector reads one query result.
type Connector struct {
	dsn   string
	query string
}

// Load implements datasource.Connector.
func (c *Connector) Load(ctx context.Context, req datasource.Request) ([]records.Record, error) {
	conn, err := pgx.Connect(ctx, c.dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	total := 0
	if req.UseSample {
		if err := conn.QueryRow(ctx, sqlsource.CountQuery(c.query)).Scan(&total); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}

	rows, err := conn.Query(ctx, c.query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out, err := datasource.Collect(ctx, req, total, func() (records.Record, bool, error) {
		if !rows.Next() {
			return nil, false, rows.Err()
		}
		vals, err := rows.Values()
		if err != nil {
			return nil, false, fmt.Errorf("values: %w", err)
		}
		rec := make(records.Record, len(fields))
		for i, f := range fields {
			rec[f.Name] = Value(vals[i])
		}
		return rec, true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, rows.Err()
}

// Value maps pgx decoded values onto record values: narrow numbers widen,
// numerics become float64 and UUIDs their canonical string.
func Value(v any) any {
	switch x := v.(type) {
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	case []byte:
		return string(x)
	}
	return v
}
