// Package storage is the backend-agnostic side of materialization: a registry
// of SQL sinks, a batched loader, and Materialize, which writes the records of
// a finished run into a table created from its final schema snapshot.
//
// Backends register themselves at init time; import storage/all to enable all
// of them.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"datascout/internal/ddl"
)

// Config selects and parameterizes a backend.
type Config struct {
	Kind  string
	DSN   string
	Table string
	// KeyColumns, when set, become the primary key of a created table and
	// make backends that support it replace rows with matching keys.
	KeyColumns []string
}

// Repository is an open connection to one sink table.
type Repository interface {
	Dialect() ddl.Dialect
	// CopyFrom inserts rows aligned to columns and reports how many were
	// written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Factory opens a Repository.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. A later registration of the
// same kind replaces the earlier one.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens the backend registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
