package builtin

import (
	"fmt"
	"sort"

	"datascout/internal/config"
	"datascout/internal/frame"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

var sortByDescriptor = transformer.Descriptor{
	Key:   "sortby",
	Title: "Sort the data",
	Fields: transformer.Fields{
		{
			Key: "sorting", Name: "Sorting", Type: "list<sort>", Help: "The columns to sort on",
			Input: "multiple", Required: true, Multiple: true, Default: "",
			SubFields: transformer.Fields{
				inputColumn("field", "Field", "The column to sort on"),
				selectParam("order", "Order", "", "asc", map[string]string{"asc": "Ascending", "desc": "Descending"}),
			},
		},
	},
	Flags: transformer.Flags{Global: true},
	New:   newSortBy,
}

type sortKey struct {
	field string
	desc  bool
}

type sortBy []sortKey

func newSortBy(args config.Options, _ int, _ records.Record) (any, error) {
	var s sortBy
	for i, raw := range args.List("sorting") {
		spec, ok := object(raw)
		if !ok {
			return nil, fmt.Errorf("sortby: sorting[%d] is not an object", i)
		}
		k := sortKey{field: spec.String("field", "")}
		if k.field == "" {
			return nil, fmt.Errorf("sortby: sorting[%d]: field is required", i)
		}
		switch spec.String("order", "asc") {
		case "asc":
		case "desc":
			k.desc = true
		default:
			return nil, fmt.Errorf("sortby: sorting[%d]: order must be asc or desc", i)
		}
		s = append(s, k)
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("sortby: at least one sort column is required")
	}
	return s, nil
}

// ApplyGlobal stably sorts the rows. Missing values go last in either order.
func (s sortBy) ApplyGlobal(f *frame.Frame) (*frame.Frame, error) {
	for _, k := range s {
		if f.Index(k.field) < 0 && f.Len() > 0 {
			return nil, fmt.Errorf("sortby: column %q not found", k.field)
		}
	}
	rows := append([]records.Record(nil), f.Rows...)
	var cmpErr error
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range s {
			a, b := rows[i][k.field], rows[j][k.field]
			am, bm := transformer.IsMissing(a), transformer.IsMissing(b)
			switch {
			case am && bm:
				continue
			case am:
				return false
			case bm:
				return true
			}
			c, err := transformer.Compare(a, b)
			if err != nil {
				if cmpErr == nil {
					cmpErr = fmt.Errorf("sortby: column %q: %w", k.field, err)
				}
				return false
			}
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	if cmpErr != nil {
		return nil, cmpErr
	}
	return &frame.Frame{Columns: f.Columns, Rows: rows}, nil
}

var globalTransformations = []transformer.Descriptor{
	groupByDescriptor,
	sortByDescriptor,
	dedupDescriptor,
}
