// Package mysql implements a MySQL sink using go-sql-driver/mysql. Each batch
// is one multi-row INSERT (REPLACE when key columns are set) in a transaction.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"datascout/internal/ddl"
)

// maxPlaceholders stays below the server limit of 65535 per statement.
const maxPlaceholders = 60000

// Config holds MySQL sink configuration.
type Config struct {
	DSN        string // go-sql-driver DSN, e.g. "user:pw@tcp(host:3306)/db?parseTime=true"
	Table      string
	KeyColumns []string
}

// Repository writes into one MySQL table.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository parses the DSN, connects and returns a Repository plus a
// close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("mysql: table must not be empty")
	}
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: dsn: %w", err)
	}
	mc.ParseTime = true
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(conn)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { _ = db.Close() }, nil
}

// Dialect reports ddl.MySQL.
func (r *Repository) Dialect() ddl.Dialect { return ddl.MySQL }

// CopyFrom inserts rows in chunks that fit the placeholder limit, all inside
// one transaction.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	per := maxPlaceholders / len(columns)
	if per < 1 {
		per = 1
	}
	var total int64
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		chunk := rows[start:end]
		args := make([]any, 0, len(chunk)*len(columns))
		for _, row := range chunk {
			if len(row) != len(columns) {
				return 0, fmt.Errorf("mysql: CopyFrom: row length %d != columns length %d", len(row), len(columns))
			}
			args = append(args, row...)
		}
		if _, err := tx.ExecContext(ctx, insertSQL(r.cfg, columns, len(chunk)), args...); err != nil {
			return 0, fmt.Errorf("mysql: insert: %w", err)
		}
		total += int64(len(chunk))
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return total, nil
}

// insertSQL renders a statement for n rows.
func insertSQL(cfg Config, columns []string, n int) string {
	verb := "INSERT"
	if len(cfg.KeyColumns) > 0 {
		verb = "REPLACE"
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	values := make([]string, n)
	for i := range values {
		values[i] = tuple
	}
	return fmt.Sprintf("%s INTO %s (%s) VALUES %s",
		verb,
		ddl.MySQL.QuoteFQN(cfg.Table),
		strings.Join(ddl.MySQL.QuoteIdents(columns), ", "),
		strings.Join(values, ", "),
	)
}

// Exec runs one statement.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mysql: exec: %w", err)
	}
	return nil
}
