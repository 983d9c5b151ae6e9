package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"

	"datascout/internal/schema"
	"datascout/pkg/records"
)

// CopyFn inserts one batch of rows aligned to columns and returns the number
// of rows written. It must return promptly once ctx is done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// copyBatches converts rows to driver values along snap, size rows at a time,
// and hands every batch to fn. It stops at the first error or once ctx is
// done. The count includes whatever fn reported for a failing batch.
func copyBatches(ctx context.Context, snap schema.Snapshot, rows []records.Record, size int, fn CopyFn) (int64, error) {
	if size <= 0 {
		return 0, fmt.Errorf("storage: batch size must be > 0")
	}
	if fn == nil {
		return 0, fmt.Errorf("storage: copy function must not be nil")
	}

	cols := snap.Names()
	batch := make([][]any, 0, min(size, len(rows)))
	p := progress{start: time.Now()}
	p.last = p.start
	var total int64

	for lo := 0; lo < len(rows); lo += size {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		batch = batch[:0]
		for _, r := range rows[lo:min(lo+size, len(rows))] {
			row := make([]any, len(snap))
			for i, c := range snap {
				row[i] = sqlValue(r[c.Name], c.Type)
			}
			batch = append(batch, row)
		}

		n, err := fn(ctx, cols, batch)
		total += n
		if err != nil {
			log.Printf("storage: batch failed after=%d total=%d err=%v", n, total, err)
			return total, err
		}
		p.done(n, total)
	}
	return total, nil
}

type progress struct {
	start, last time.Time
	batches     int
}

func (p *progress) done(n, total int64) {
	p.batches++
	now := time.Now()
	rps := float64(0)
	if d := now.Sub(p.last); d > 0 {
		rps = float64(n) / d.Seconds()
	}
	log.Printf("storage: batch #%d: rps=%.0f inserted=%d total_inserted=%s elapsed=%s",
		p.batches, rps, n, humanize.Comma(total), now.Sub(p.start).Truncate(time.Millisecond))
	p.last = now
}
