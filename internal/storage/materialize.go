package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"datascout/internal/ddl"
	"datascout/internal/frame"
	"datascout/internal/metrics"
	"datascout/internal/schema"
	"datascout/pkg/records"
)

// DefaultBatchSize is the batch size used when Options.BatchSize is unset.
const DefaultBatchSize = 1000

// Options tune Materialize.
type Options struct {
	BatchSize int
	// CreateTable issues CREATE TABLE IF NOT EXISTS before loading.
	CreateTable bool
	// Job labels the batch and row metrics; "materialize" when empty.
	Job string
}

// Materialize writes rows into the table of cfg through repo. Column order
// and types come from snap, normally the last schema snapshot of the run;
// when snap is empty it is inferred from the rows. Columns typed null in the
// snapshot take the type of their first non-nil value.
func Materialize(ctx context.Context, repo Repository, cfg Config, snap schema.Snapshot, columns []string, rows []records.Record, opt Options) (int64, error) {
	if opt.BatchSize <= 0 {
		opt.BatchSize = DefaultBatchSize
	}
	if opt.Job == "" {
		opt.Job = "materialize"
	}
	if len(snap) == 0 {
		snap = schema.Infer(frame.Materialize(columns, rows))
	}
	snap = settle(snap, rows)
	if len(snap) == 0 {
		return 0, fmt.Errorf("storage: nothing to materialize into %s", cfg.Table)
	}

	if opt.CreateTable {
		d := repo.Dialect()
		td, err := ddl.FromSnapshot(d, cfg.Table, snap, cfg.KeyColumns)
		if err != nil {
			return 0, err
		}
		stmt, err := ddl.BuildCreateTableSQL(d, td)
		if err != nil {
			return 0, err
		}
		if err := repo.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("storage: create %s: %w", cfg.Table, err)
		}
		log.Printf("storage: ensured table %s (%d columns)", cfg.Table, len(td.Columns))
	}

	n, err := copyBatches(ctx, snap, rows, opt.BatchSize, func(ctx context.Context, columns []string, batch [][]any) (int64, error) {
		n, err := repo.CopyFrom(ctx, columns, batch)
		if err == nil {
			metrics.RecordBatches(opt.Job, 1)
		}
		metrics.RecordRows(opt.Job, metrics.KindWritten, n)
		return n, err
	})
	if err != nil {
		return n, fmt.Errorf("storage: load %s: %w", cfg.Table, err)
	}
	return n, nil
}

func settle(snap schema.Snapshot, rows []records.Record) schema.Snapshot {
	out := make(schema.Snapshot, len(snap))
	copy(out, snap)
	for i, c := range out {
		if c.Type != schema.TypeNull {
			continue
		}
		for _, r := range rows {
			if v := r[c.Name]; v != nil {
				out[i].Type = schema.TypeOf(v)
				break
			}
		}
	}
	return out
}

// sqlValue converts v into a driver value matching the column type tag.
// Values that do not fit their column become text.
func sqlValue(v any, tag string) any {
	if v == nil {
		return nil
	}
	switch tag {
	case schema.TypeInt:
		switch n := v.(type) {
		case int:
			return int64(n)
		case int8:
			return int64(n)
		case int16:
			return int64(n)
		case int32:
			return int64(n)
		case int64:
			return n
		case uint8:
			return int64(n)
		case uint16:
			return int64(n)
		case uint32:
			return int64(n)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i
			}
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return int64(n)
			}
		}
	case schema.TypeFloat:
		switch n := v.(type) {
		case float64:
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return nil
			}
			return n
		case float32:
			return float64(n)
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	case schema.TypeBool:
		if b, ok := v.(bool); ok {
			return b
		}
	case schema.TypeDatetime:
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return text(v)
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case time.Duration:
		return x.String()
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	if b, err := json.Marshal(v); err == nil {
		if s := string(b); len(s) > 0 && (s[0] == '{' || s[0] == '[') {
			return s
		}
	}
	return fmt.Sprint(v)
}
