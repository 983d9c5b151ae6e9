package transformer

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"datascout/internal/frame"
	"datascout/pkg/records"
)

// RowOptions tunes ApplyRows.
type RowOptions struct {
	// Workers > 1 fans rows out over that many goroutines once the batch has
	// at least Threshold rows. Output order always follows input order.
	Workers   int
	Threshold int
	// Filter allows the instance to reject rows by returning nil.
	Filter bool
}

// Outcome summarizes one dispatch.
type Outcome struct {
	Rows []records.Record
	// Skipped counts rows kept unchanged because ErrFilterInput was returned.
	Skipped int
	// FirstSkip is the error of the first skipped row.
	FirstSkip error
}

// RowError locates a failing row.
type RowError struct {
	Index int
	Err   error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Index, e.Err) }
func (e *RowError) Unwrap() error { return e.Err }

// PanicError is a panic raised inside a transformation, recovered at the
// dispatch boundary.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

func recovered(err *error) {
	if v := recover(); v != nil {
		*err = &PanicError{Value: v}
	}
}

func applyRow(t Row, r records.Record, i int) (out records.Record, err error) {
	defer recovered(&err)
	return t.ApplyRow(r, i)
}

func flatten(t Flattener, r records.Record, i int) (out []records.Record, err error) {
	defer recovered(&err)
	return t.Flatten(r, i)
}

func applyGlobal(t Global, f *frame.Frame) (out *frame.Frame, err error) {
	defer recovered(&err)
	return t.ApplyGlobal(f)
}

// ApplyRows invokes t once per row with the row's position. Rejected rows are
// returned as nil entries; DropRejected removes them. A panic in t comes back
// as a *RowError wrapping a *PanicError, in every worker.
func ApplyRows(ctx context.Context, t Row, rows []records.Record, opt RowOptions) (Outcome, error) {
	out := make([]records.Record, len(rows))
	skipped := make([]error, len(rows))

	apply := func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			if (i-lo)%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			r, err := applyRow(t, rows[i], i)
			if err != nil {
				if errors.Is(err, ErrFilterInput) {
					out[i] = rows[i]
					skipped[i] = err
					continue
				}
				return &RowError{Index: i, Err: err}
			}
			if r == nil && !opt.Filter {
				return &RowError{Index: i, Err: fmt.Errorf("transformation returned no row")}
			}
			out[i] = r
		}
		return nil
	}

	if opt.Workers <= 1 || len(rows) < opt.Threshold || len(rows) < 2 {
		if err := apply(0, len(rows)); err != nil {
			return Outcome{}, err
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opt.Workers)
		chunk := (len(rows) + opt.Workers - 1) / opt.Workers
		for lo := 0; lo < len(rows); lo += chunk {
			lo, hi := lo, min(lo+chunk, len(rows))
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return apply(lo, hi)
			})
		}
		if err := g.Wait(); err != nil {
			return Outcome{}, err
		}
	}

	res := Outcome{Rows: out}
	for _, e := range skipped {
		if e != nil {
			if res.Skipped == 0 {
				res.FirstSkip = e
			}
			res.Skipped++
		}
	}
	return res, nil
}

// ApplyFlatten invokes t once per row and concatenates the results in row
// order.
func ApplyFlatten(ctx context.Context, t Flattener, rows []records.Record) (Outcome, error) {
	var out []records.Record
	for i, r := range rows {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return Outcome{}, err
			}
		}
		rs, err := flatten(t, r, i)
		if err != nil {
			return Outcome{}, &RowError{Index: i, Err: err}
		}
		out = append(out, rs...)
	}
	if out == nil {
		out = []records.Record{}
	}
	return Outcome{Rows: out}, nil
}

// ApplyGlobal invokes t on the materialized dataset.
func ApplyGlobal(ctx context.Context, t Global, f *frame.Frame) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := applyGlobal(t, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return &frame.Frame{Columns: f.Columns, Rows: []records.Record{}}, nil
	}
	return out, nil
}

// DropRejected removes rejected (nil) rows, keeping order.
func DropRejected(rows []records.Record) []records.Record {
	out := rows[:0:0]
	for _, r := range rows {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
