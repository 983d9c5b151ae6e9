// Package postgres implements a Postgres sink on pgx v5. Plain loads use
// COPY straight into the target table; with key columns a batch is copied
// into a temporary table and swapped in with DELETE + INSERT.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"datascout/internal/ddl"
)

// Config holds Postgres sink configuration.
type Config struct {
	DSN        string   // connection string for pgxpool
	Table      string   // possibly schema-qualified, e.g. "public.scores"
	KeyColumns []string // rows with matching keys are replaced
}

// Repository writes into one Postgres table.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository connects a pool and returns a Repository plus a close
// function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("postgres: table must not be empty")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: pool: %w", err)
	}
	return &Repository{pool: pool, cfg: cfg}, pool.Close, nil
}

// Dialect reports ddl.Postgres.
func (r *Repository) Dialect() ddl.Dialect { return ddl.Postgres }

// CopyFrom loads rows with COPY.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(r.cfg.KeyColumns) == 0 {
		n, err := r.pool.CopyFrom(ctx, splitFQN(r.cfg.Table), columns, pgx.CopyFromRows(rows))
		if err != nil {
			return 0, copyErr("copy", err)
		}
		return n, nil
	}
	return r.replace(ctx, columns, rows)
}

// replace swaps rows by key inside one transaction.
func (r *Repository) replace(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tmp := stagingName(r.cfg.Table)
	create := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		ddl.Postgres.QuoteIdent(tmp), ddl.Postgres.QuoteFQN(r.cfg.Table))
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, fmt.Errorf("postgres: create staging: %w", err)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{tmp}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, copyErr("copy into staging", err)
	}
	for _, stmt := range replaceSQL(r.cfg.Table, tmp, columns, r.cfg.KeyColumns) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("postgres: replace: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return n, nil
}

// replaceSQL deletes target rows that share a key with the staging table and
// inserts the staged rows.
func replaceSQL(table, tmp string, columns, keys []string) []string {
	q := ddl.Postgres
	conds := make([]string, len(keys))
	for i, k := range keys {
		conds[i] = fmt.Sprintf("T.%s = S.%s", q.QuoteIdent(k), q.QuoteIdent(k))
	}
	cols := strings.Join(q.QuoteIdents(columns), ", ")
	return []string{
		fmt.Sprintf("DELETE FROM %s AS T USING %s AS S WHERE %s",
			q.QuoteFQN(table), q.QuoteIdent(tmp), strings.Join(conds, " AND ")),
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			q.QuoteFQN(table), cols, cols, q.QuoteIdent(tmp)),
	}
}

func stagingName(table string) string {
	return "tmp_" + strings.ReplaceAll(table, ".", "_")
}

// copyErr surfaces the server's detail text when there is one.
func copyErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("postgres: %s: %s (%s): %w", op, pgErr.Detail, pgErr.SQLState(), err)
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

// splitFQN converts "schema.table" into a pgx.Identifier.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}

// Exec runs one statement.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}
