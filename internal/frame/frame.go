// Package frame builds the tabular view of a dataset that global
// transformations and schema inference work on.
package frame

import (
	"datascout/pkg/records"
)

// Frame is a dataset with a fixed column list. Every row carries every column;
// columns missing from a source row hold nil. Rows are copies, so changing a
// Frame never touches the dataset it was built from.
type Frame struct {
	Columns []string
	Rows    []records.Record
}

// Materialize builds a Frame from rows. hint gives the preferred column order
// (see records.ColumnsInOrder).
func Materialize(hint []string, rows []records.Record) *Frame {
	cols := records.ColumnsInOrder(hint, rows)
	out := make([]records.Record, len(rows))
	for i, r := range rows {
		c := make(records.Record, len(cols))
		for _, col := range cols {
			c[col] = r[col]
		}
		out[i] = c
	}
	return &Frame{Columns: cols, Rows: out}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Column returns the values of one column in row order, or nil when the
// column does not exist.
func (f *Frame) Column(name string) []any {
	if f.Index(name) < 0 {
		return nil
	}
	out := make([]any, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r[name]
	}
	return out
}

// Index returns the position of a column or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Values returns the rows as positional slices following Columns.
func (f *Frame) Values() [][]any {
	out := make([][]any, len(f.Rows))
	for i, r := range f.Rows {
		row := make([]any, len(f.Columns))
		for j, c := range f.Columns {
			row[j] = r[c]
		}
		out[i] = row
	}
	return out
}

// Converge fills missing keys with nil in place and returns the final column
// order. It is applied once to the output of a pipeline.
func Converge(hint []string, rows []records.Record) []string {
	cols := records.ColumnsInOrder(hint, rows)
	for _, r := range rows {
		for _, c := range cols {
			if _, ok := r[c]; !ok {
				r[c] = nil
			}
		}
	}
	return cols
}
