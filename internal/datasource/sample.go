package datasource

import (
	"context"
	"encoding/json"

	"github.com/dustin/go-humanize"

	"datascout/internal/sampling"
	"datascout/pkg/records"
)

// Plan returns the selector for a source of total data rows whose leading
// rows have the byte sizes in probe, or nil when every row is wanted.
func Plan(req Request, total int, probe []int) *sampling.Selector {
	if !req.UseSample {
		return nil
	}
	n := req.Budget.Size(total, probe)
	return sampling.NewSelector(sampling.Positions(req.Technique, total, n, req.Rand))
}

// SizeOf estimates the byte size of a record from its JSON encoding.
func SizeOf(r records.Record) int {
	b, err := json.Marshal(map[string]any(r))
	if err != nil {
		return 0
	}
	return len(b)
}

// ProbeSizes measures the leading rows used to size a sample.
func ProbeSizes(rows []records.Record) []int {
	return sizes(rows[:min(sampling.ProbeRows(len(rows)), len(rows))])
}

func sizes(rows []records.Record) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = SizeOf(r)
	}
	return out
}

// SampleRows applies req to rows that are already in memory.
func SampleRows(req Request, rows []records.Record) []records.Record {
	sel := Plan(req, len(rows), ProbeSizes(rows))
	if sel == nil {
		return rows
	}
	out := make([]records.Record, 0)
	for i, r := range rows {
		if sel.Done() {
			break
		}
		if sel.Keep(i) {
			out = append(out, r)
		}
	}
	return out
}

// Describe renders a byte budget for log lines.
func Describe(b sampling.Budget) string {
	if b.MaxBytes <= 0 {
		b = sampling.DefaultBudget()
	}
	return humanize.Bytes(uint64(b.MaxBytes))
}

// Cursor yields the rows of a database cursor; ok is false once it is
// exhausted.
type Cursor func() (rec records.Record, ok bool, err error)

// Collect drains next. When sampling, total is the row count the source
// reported; the leading rows are buffered to measure the probe and the rest of
// the cursor is filtered through the resulting selector, stopping as soon as
// every selected position was seen.
func Collect(ctx context.Context, req Request, total int, next Cursor) ([]records.Record, error) {
	var out []records.Record
	pull := func(i int) (records.Record, bool, error) {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}
		}
		return next()
	}

	if !req.UseSample {
		for i := 0; ; i++ {
			rec, ok, err := pull(i)
			if err != nil {
				return nil, err
			}
			if !ok {
				return out, nil
			}
			out = append(out, rec)
		}
	}

	want := min(sampling.ProbeRows(total), total)
	probe := make([]records.Record, 0, max(want, 0))
	for len(probe) < want {
		rec, ok, err := pull(len(probe))
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		probe = append(probe, rec)
	}

	sel := Plan(req, total, sizes(probe))
	i := 0
	for ; i < len(probe) && !sel.Done(); i++ {
		if sel.Keep(i) {
			out = append(out, probe[i])
		}
	}
	for ; !sel.Done(); i++ {
		rec, ok, err := pull(i)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if sel.Keep(i) {
			out = append(out, rec)
		}
	}
	return out, nil
}
