// Package join materializes the synthetic join source: two row sets that were
// produced by nested pipelines, combined on key equalities.
//
// Key columns that carry the same name on both sides are merged into one
// output column. Any other right-hand column whose name is already taken is
// emitted as right_<name>. A nil key component never matches.
package join

import (
	"context"
	"fmt"

	"datascout/internal/bitmap"
	"datascout/pkg/records"
)

// How selects the join method.
type How string

const (
	Inner How = "inner"
	Left  How = "left"
	Right How = "right"
	Outer How = "outer"
	Cross How = "cross"
)

// RightPrefix marks right-hand columns whose name clashes with a left-hand one.
const RightPrefix = "right_"

// ParseHow validates s; the empty string is Inner.
func ParseHow(s string) (How, error) {
	switch h := How(s); h {
	case "":
		return Inner, nil
	case Inner, Left, Right, Outer, Cross:
		return h, nil
	}
	return "", fmt.Errorf("join: unknown method %q", s)
}

// Side is one input of a join.
type Side struct {
	Rows []records.Record
	// Columns is the column order of Rows; derived from the rows when empty.
	Columns []string
	On      []string
}

// plan maps right-hand columns onto output names.
type plan struct {
	columns []string
	// rename maps a right column to its output name; merged keys are absent.
	rename map[string]string
	// merged maps a right key column to the left key it was merged into.
	merged map[string]string
}

func newPlan(left, right Side) plan {
	p := plan{rename: map[string]string{}, merged: map[string]string{}}
	taken := map[string]bool{}
	for _, c := range left.Columns {
		taken[c] = true
		p.columns = append(p.columns, c)
	}
	for k, rc := range right.On {
		if left.On[k] == rc {
			p.merged[rc] = rc
		}
	}
	for _, c := range right.Columns {
		if _, ok := p.merged[c]; ok {
			continue
		}
		name := c
		for taken[name] {
			name = RightPrefix + name
		}
		taken[name] = true
		p.rename[c] = name
		p.columns = append(p.columns, name)
	}
	return p
}

// Merge joins left and right. It returns the joined rows and their column
// order. Row order follows the driving side: left rows for inner, left and
// outer joins (unmatched right rows of an outer join come last), right rows
// for right joins.
func Merge(ctx context.Context, left, right Side, how How) ([]records.Record, []string, error) {
	if len(left.On) != len(right.On) {
		return nil, nil, fmt.Errorf("join: on_left has %d fields but on_right has %d", len(left.On), len(right.On))
	}
	if how == Cross && len(left.On) > 0 {
		return nil, nil, fmt.Errorf("join: cross join takes no key fields")
	}
	if how != Cross && len(left.On) == 0 {
		return nil, nil, fmt.Errorf("join: %s join needs key fields", how)
	}
	if len(left.Columns) == 0 {
		left.Columns = records.Columns(left.Rows)
	}
	if len(right.Columns) == 0 {
		right.Columns = records.Columns(right.Rows)
	}
	p := newPlan(left, right)

	emit := func(l, r records.Record) records.Record {
		out := make(records.Record, len(p.columns))
		for _, c := range left.Columns {
			out[c] = nil
			if l != nil {
				out[c] = l[c]
			}
		}
		for _, c := range right.Columns {
			if lk, ok := p.merged[c]; ok {
				if l == nil && r != nil {
					out[lk] = r[c]
				}
				continue
			}
			out[p.rename[c]] = nil
			if r != nil {
				out[p.rename[c]] = r[c]
			}
		}
		return out
	}

	var out []records.Record
	if how == Cross {
		for i, l := range left.Rows {
			if err := tick(ctx, i); err != nil {
				return nil, nil, err
			}
			for _, r := range right.Rows {
				out = append(out, emit(l, r))
			}
		}
		return out, p.columns, nil
	}

	if how == Right {
		index := buildIndex(left.Rows, left.On)
		for i, r := range right.Rows {
			if err := tick(ctx, i); err != nil {
				return nil, nil, err
			}
			matches := index.lookup(r, right.On)
			if len(matches) == 0 {
				out = append(out, emit(nil, r))
			}
			for _, li := range matches {
				out = append(out, emit(left.Rows[li], r))
			}
		}
		return out, p.columns, nil
	}

	index := buildIndex(right.Rows, right.On)
	used := bitmap.New(len(right.Rows))
	for i, l := range left.Rows {
		if err := tick(ctx, i); err != nil {
			return nil, nil, err
		}
		matches := index.lookup(l, left.On)
		if len(matches) == 0 && how != Inner {
			out = append(out, emit(l, nil))
		}
		for _, ri := range matches {
			used.Set(ri)
			out = append(out, emit(l, right.Rows[ri]))
		}
	}
	if how == Outer {
		for ri, r := range right.Rows {
			if !used.Has(ri) {
				out = append(out, emit(nil, r))
			}
		}
	}
	return out, p.columns, nil
}

func tick(ctx context.Context, i int) error {
	if i%1024 == 0 {
		return ctx.Err()
	}
	return nil
}

// index buckets row positions by their canonical key bytes.
type index map[string][]int

func key(r records.Record, on []string) (string, bool) {
	var b []byte
	for _, c := range on {
		v := r[c]
		if v == nil {
			return "", false
		}
		b = records.AppendKey(b, v)
		b = append(b, 0x1f)
	}
	return string(b), true
}

func buildIndex(rows []records.Record, on []string) index {
	idx := make(index, len(rows))
	for i, r := range rows {
		if k, ok := key(r, on); ok {
			idx[k] = append(idx[k], i)
		}
	}
	return idx
}

func (idx index) lookup(r records.Record, on []string) []int {
	k, ok := key(r, on)
	if !ok {
		return nil
	}
	return idx[k]
}
