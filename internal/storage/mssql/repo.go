// Package mssql implements a SQL Server sink using the go-mssqldb bulk copy
// API. With key columns a batch is bulk-copied into a session temp table and
// swapped in with DELETE + INSERT.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"datascout/internal/ddl"
)

// Config holds MSSQL sink configuration.
type Config struct {
	DSN        string
	Table      string
	KeyColumns []string
}

// Repository writes into one SQL Server table.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository validates the DSN, connects and returns a Repository plus a
// close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("mssql: table must not be empty")
	}
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql: dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mssql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { _ = db.Close() }, nil
}

// Dialect reports ddl.MSSQL.
func (r *Repository) Dialect() ddl.Dialect { return ddl.MSSQL }

// CopyFrom bulk-inserts rows in one transaction.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	target := r.cfg.Table
	tmp := stagingName(r.cfg.Table)
	if len(r.cfg.KeyColumns) > 0 {
		stage := fmt.Sprintf("SELECT TOP 0 %s INTO %s FROM %s",
			strings.Join(ddl.MSSQL.QuoteIdents(columns), ", "), ddl.MSSQL.QuoteIdent(tmp), ddl.MSSQL.QuoteFQN(r.cfg.Table))
		if _, err := tx.ExecContext(ctx, stage); err != nil {
			return 0, fmt.Errorf("mssql: create staging: %w", err)
		}
		target = tmp
	}

	n, err := bulkCopy(ctx, tx, target, columns, rows)
	if err != nil {
		return 0, err
	}

	if len(r.cfg.KeyColumns) > 0 {
		for _, stmt := range replaceSQL(r.cfg.Table, tmp, columns, r.cfg.KeyColumns) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return 0, fmt.Errorf("mssql: replace: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit: %w", err)
	}
	return n, nil
}

func bulkCopy(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("mssql: bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("mssql: bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	return n, nil
}

// replaceSQL deletes target rows that share a key with the staging table,
// inserts the staged rows and drops the staging table.
func replaceSQL(table, tmp string, columns, keys []string) []string {
	q := ddl.MSSQL
	conds := make([]string, len(keys))
	for i, k := range keys {
		conds[i] = fmt.Sprintf("T.%s = S.%s", q.QuoteIdent(k), q.QuoteIdent(k))
	}
	cols := strings.Join(q.QuoteIdents(columns), ", ")
	return []string{
		fmt.Sprintf("DELETE T FROM %s AS T INNER JOIN %s AS S ON %s",
			q.QuoteFQN(table), q.QuoteIdent(tmp), strings.Join(conds, " AND ")),
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			q.QuoteFQN(table), cols, cols, q.QuoteIdent(tmp)),
		fmt.Sprintf("DROP TABLE %s", q.QuoteIdent(tmp)),
	}
}

// stagingName is a session temp table name derived from the target.
func stagingName(table string) string {
	return "#tmp_" + strings.ReplaceAll(table, ".", "_")
}

// Exec runs one statement.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mssql: exec: %w", err)
	}
	return nil
}
