// Package sqlite implements a SQLite sink using database/sql and the pure-Go
// modernc.org/sqlite driver. Batches are inserted inside one transaction with
// a prepared statement.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"datascout/internal/ddl"
)

// Config holds the SQLite settings derived from storage.Config.
type Config struct {
	// DSN is a file path or a "file:" URI, e.g. "file:out.db?_pragma=busy_timeout(5000)".
	DSN string
	// Table may be dotted ("main.events"); each segment is quoted.
	Table string
	// KeyColumns make CopyFrom replace rows with the same primary key.
	KeyColumns []string
}

// Repository writes into one SQLite table.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens the database and returns a Repository plus a close
// function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("sqlite: table must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { db.Close() }, nil
}

// Dialect reports ddl.SQLite.
func (r *Repository) Dialect() ddl.Dialect { return ddl.SQLite }

// CopyFrom inserts rows in a single transaction. With key columns configured
// the statement is INSERT OR REPLACE, so rows whose key exists overwrite it.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(r.cfg, columns))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: CopyFrom: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

func insertSQL(cfg Config, columns []string) string {
	verb := "INSERT"
	if len(cfg.KeyColumns) > 0 {
		verb = "INSERT OR REPLACE"
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("%s INTO %s (%s) VALUES (%s)",
		verb,
		ddl.SQLite.QuoteFQN(cfg.Table),
		strings.Join(ddl.SQLite.QuoteIdents(columns), ", "),
		placeholders,
	)
}

// Exec runs one statement.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// Query is a read helper used to inspect a materialized table.
func (r *Repository) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, query, args...)
}
