package builtin

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"datascout/internal/config"
	"datascout/internal/frame"
	"datascout/internal/sampling"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

var aggOptions = map[string]string{
	"all": "All", "any": "Any", "count": "Count", "nunique": "Count distinct", "first": "First",
	"last": "Last", "max": "Max", "min": "Min", "mean": "Mean", "median": "Median", "sum": "Sum",
	"prod": "Product", "size": "Size", "sem": "Standard Error of the Mean", "std": "Standard deviation",
	"var": "Variance",
}

var groupByDescriptor = transformer.Descriptor{
	Key:   "groupby",
	Title: "Group the data by {fields}",
	Fields: transformer.Fields{
		inputColumns("fields", "Fields", "The fields to group by"),
		{
			Key: "aggs", Name: "Aggregations", Type: "list<agg>", Help: "The aggregations to make",
			Input: "multiple", Required: true, Multiple: true, Default: "",
			SubFields: transformer.Fields{
				inputColumn("field", "Input", "The column to use as input"),
				selectParam("agg", "Aggregation", "", "", aggOptions),
				{Key: "skipna", Name: "Skip NA", Type: "string", Input: "select", Default: "1",
					Help: "Skip missing values?", Options: map[string]string{"1": "Yes", "0": "No"}},
				{Key: "ddof", Name: "Degrees of freedom", Type: "number", Input: "number", Default: 1,
					Help: "The degrees of freedom"},
				{Key: "name", Name: "Name", Type: "string", Input: "text", Default: "",
					Help: "The name of the newly created column"},
			},
		},
	},
	Flags: transformer.Flags{Global: true},
	// Aggregates over the head of a file are rarely representative.
	Sampling: []sampling.Technique{sampling.Random, sampling.Stratified},
	New:      newGroupBy,
}

type aggregation struct {
	field  string
	agg    string
	name   string
	ddof   int
	skipna bool
}

type groupBy struct {
	keys []string
	aggs []aggregation
}

func newGroupBy(args config.Options, _ int, _ records.Record) (any, error) {
	keys, err := columnList(args, "fields")
	if err != nil {
		return nil, err
	}
	g := groupBy{keys: keys}
	for i, raw := range args.List("aggs") {
		spec, ok := object(raw)
		if !ok {
			return nil, fmt.Errorf("groupby: aggs[%d] is not an object", i)
		}
		a := aggregation{
			field:  spec.String("field", ""),
			agg:    spec.String("agg", ""),
			ddof:   spec.Int("ddof", 1),
			skipna: spec.String("skipna", "1") != "0",
		}
		if a.field == "" {
			return nil, fmt.Errorf("groupby: aggs[%d]: field is required", i)
		}
		if _, ok := aggOptions[a.agg]; !ok {
			return nil, fmt.Errorf("groupby: aggs[%d]: unknown aggregation %q", i, a.agg)
		}
		a.name = strings.ReplaceAll(spec.String("name", ""), " ", "_")
		if a.name == "" {
			a.name = a.field + "_" + a.agg
		}
		g.aggs = append(g.aggs, a)
	}
	if len(g.aggs) == 0 {
		return nil, fmt.Errorf("groupby: at least one aggregation is required")
	}
	return g, nil
}

type group struct {
	key  []any
	rows []records.Record
}

// ApplyGlobal groups rows by the key columns, dropping rows with a missing key
// value, and emits one row per group in ascending key order.
func (g groupBy) ApplyGlobal(f *frame.Frame) (*frame.Frame, error) {
	for _, c := range g.keys {
		if f.Index(c) < 0 && f.Len() > 0 {
			return nil, fmt.Errorf("groupby: column %q not found", c)
		}
	}
	for _, a := range g.aggs {
		if f.Index(a.field) < 0 && f.Len() > 0 {
			return nil, fmt.Errorf("groupby: column %q not found", a.field)
		}
	}

	index := make(map[xxh3.Uint128]int)
	var groups []*group
rows:
	for _, r := range f.Rows {
		for _, c := range g.keys {
			if transformer.IsMissing(r[c]) {
				continue rows
			}
		}
		h := records.KeyHash(r, g.keys)
		i, ok := index[h]
		if !ok {
			key := make([]any, len(g.keys))
			for j, c := range g.keys {
				key[j] = r[c]
			}
			i = len(groups)
			index[h] = i
			groups = append(groups, &group{key: key})
		}
		groups[i].rows = append(groups[i].rows, r)
	}

	sort.SliceStable(groups, func(i, j int) bool { return lessTuple(groups[i].key, groups[j].key) })

	cols := append([]string{}, g.keys...)
	for _, a := range g.aggs {
		cols = append(cols, a.name)
	}
	out := make([]records.Record, 0, len(groups))
	for _, gr := range groups {
		row := make(records.Record, len(cols))
		for j, c := range g.keys {
			row[c] = gr.key[j]
		}
		for _, a := range g.aggs {
			vals := make([]any, len(gr.rows))
			for j, r := range gr.rows {
				vals[j] = r[a.field]
			}
			v, err := aggregate(a, vals)
			if err != nil {
				return nil, fmt.Errorf("groupby: %s(%s): %w", a.agg, a.field, err)
			}
			row[a.name] = v
		}
		out = append(out, row)
	}
	return &frame.Frame{Columns: cols, Rows: out}, nil
}

// lessTuple orders key tuples element-wise. Values without a common order fall
// back to comparing their type names so sorting stays deterministic.
func lessTuple(a, b []any) bool {
	for i := range a {
		c, err := transformer.Compare(a[i], b[i])
		if err != nil {
			c = strings.Compare(fmt.Sprintf("%T", a[i]), fmt.Sprintf("%T", b[i]))
		}
		if c != 0 {
			return c < 0
		}
	}
	return false
}

func nonMissing(vals []any) []any {
	out := make([]any, 0, len(vals))
	for _, v := range vals {
		if !transformer.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

func aggregate(a aggregation, vals []any) (any, error) {
	present := nonMissing(vals)
	switch a.agg {
	case "size":
		return int64(len(vals)), nil
	case "count":
		return int64(len(present)), nil
	case "nunique":
		src := present
		if !a.skipna {
			src = vals
		}
		seen := make(map[xxh3.Uint128]struct{}, len(src))
		for _, v := range src {
			if transformer.IsMissing(v) {
				v = nil
			}
			seen[xxh3.Hash128(records.AppendKey(nil, v))] = struct{}{}
		}
		return int64(len(seen)), nil
	case "first":
		if len(present) == 0 {
			return nil, nil
		}
		return present[0], nil
	case "last":
		if len(present) == 0 {
			return nil, nil
		}
		return present[len(present)-1], nil
	case "min":
		if len(present) == 0 {
			return math.NaN(), nil
		}
		return extreme(present, -1)
	case "max":
		if len(present) == 0 {
			return math.NaN(), nil
		}
		return extreme(present, 1)
	case "all", "any":
		src := present
		if !a.skipna {
			src = vals
		}
		want := a.agg == "any"
		for _, v := range src {
			if truthy(v) == want {
				return want, nil
			}
		}
		return !want, nil
	case "sum", "prod":
		return fold(a.agg, present)
	}

	nums, err := floats(present)
	if err != nil {
		return nil, err
	}
	switch a.agg {
	case "mean":
		if len(nums) == 0 {
			return math.NaN(), nil
		}
		var s float64
		for _, f := range nums {
			s += f
		}
		return s / float64(len(nums)), nil
	case "median":
		if len(nums) == 0 {
			return math.NaN(), nil
		}
		sort.Float64s(nums)
		m := len(nums) / 2
		if len(nums)%2 == 1 {
			return nums[m], nil
		}
		return (nums[m-1] + nums[m]) / 2, nil
	case "var", "std", "sem":
		v := variance(nums, a.ddof)
		switch a.agg {
		case "std":
			return math.Sqrt(v), nil
		case "sem":
			return math.Sqrt(v) / math.Sqrt(float64(len(nums))), nil
		}
		return v, nil
	}
	return nil, fmt.Errorf("unknown aggregation %q", a.agg)
}

// fold sums or multiplies, keeping int64 while every value is an integer.
func fold(op string, vals []any) (any, error) {
	isInt := true
	ai, af := int64(0), 0.0
	if op == "prod" {
		ai, af = 1, 1
	}
	for _, v := range vals {
		if !transformer.IsNumber(v) {
			return nil, fmt.Errorf("%v is not a number", v)
		}
		f, _ := transformer.ToFloat(v)
		i, intOK := v.(int64)
		if !transformer.IsInteger(v) {
			isInt = false
		} else if !intOK {
			i, _ = transformer.ToInt(v)
		}
		if op == "sum" {
			ai += i
			af += f
		} else {
			ai *= i
			af *= f
		}
	}
	if isInt {
		return ai, nil
	}
	return af, nil
}

func floats(vals []any) ([]float64, error) {
	out := make([]float64, len(vals))
	for i, v := range vals {
		if !transformer.IsNumber(v) {
			return nil, fmt.Errorf("%v is not a number", v)
		}
		out[i], _ = transformer.ToFloat(v)
	}
	return out, nil
}

func variance(nums []float64, ddof int) float64 {
	n := float64(len(nums))
	if n-float64(ddof) <= 0 {
		return math.NaN()
	}
	var mean float64
	for _, f := range nums {
		mean += f
	}
	mean /= n
	var ss float64
	for _, f := range nums {
		d := f - mean
		ss += d * d
	}
	return ss / (n - float64(ddof))
}
