package builtin

import (
	"fmt"
	"strings"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

var comparisonTransformations = []transformer.Descriptor{
	{
		Key:   "comparison-compare-value",
		Title: "Check if {field} {comparison} {value}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			selectParam("comparison", "Comparison", "How should the values be compared?", "==", comparisonOptions),
			textParam("value", "Value", "The value to compare against"),
			outputColumn(),
		},
		New: newCompareValue,
	},
	{
		Key:   "comparison-compare-columns",
		Title: "Check if {field_a} {comparison} {field_b}",
		Fields: transformer.Fields{
			inputColumn("field_a", "Field A", "The column on the left side"),
			selectParam("comparison", "Comparison", "How should the values be compared?", "==", comparisonOptions),
			inputColumn("field_b", "Field B", "The column on the right side"),
			outputColumn(),
		},
		New: newCompareColumns,
	},
	{
		Key:   "comparison-parity",
		Title: "Check if {field} is {parity}",
		Fields: transformer.Fields{
			inputColumn("field", "Field", "The column to check"),
			selectParam("parity", "Parity", "Even or odd", "even", map[string]string{"even": "even", "odd": "odd"}),
			outputColumn(),
		},
		New: newParity,
	},
	{
		Key:   "comparison-negate",
		Title: "Negate {field}",
		Fields: transformer.Fields{
			inputColumn("field", "Field", "The column to negate"),
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			field, output := args.String("field", ""), args.String("output", "")
			return rowFunc(func(r records.Record, _ int) (records.Record, error) {
				v, ok := r[field]
				if !ok {
					return r, nil
				}
				r[output] = !truthy(v)
				return r, nil
			}), nil
		},
	},
	{
		Key:   "comparison-logical",
		Title: "Compare {fields} using {comparison}",
		Fields: transformer.Fields{
			inputColumns("fields", "Inputs", "The columns to use as input"),
			selectParam("comparison", "Operator", "How should the values be combined?", "and",
				map[string]string{"and": "and", "or": "or", "xor": "xor"}),
			outputColumn(),
		},
		New: newLogical,
	},
	reduceDescriptor("comparison-min", "Get the minimum of {fields}", func(vs []any) (any, error) { return extreme(vs, -1) }),
	reduceDescriptor("comparison-max", "Get the maximum of {fields}", func(vs []any) (any, error) { return extreme(vs, 1) }),
	reduceDescriptor("comparison-mean", "Get the mean of {fields}", mean),
	reduceDescriptor("comparison-mode", "Get the mode of {fields}", mode),
	reduceDescriptor("comparison-coalesce", "Get the first non-null value of {fields}", func(vs []any) (any, error) {
		for _, v := range vs {
			if !transformer.IsMissing(v) {
				return v, nil
			}
		}
		return nil, nil
	}),
}

// compare evaluates left <op> right.
func compare(op string, left, right any) (bool, error) {
	switch op {
	case "in":
		return contains(left, right)
	case "in_list":
		return contains(right, left)
	}
	if l, ok := left.([]any); ok && len(l) == 1 {
		if _, rList := right.([]any); !rList {
			left = l[0]
		}
	}
	switch op {
	case "==":
		return transformer.Equal(left, right), nil
	case "!=":
		return !transformer.Equal(left, right), nil
	}
	c, err := transformer.Compare(left, right)
	if err != nil {
		return false, err
	}
	switch op {
	case ">=":
		return c >= 0, nil
	case ">":
		return c > 0, nil
	case "<=":
		return c <= 0, nil
	case "<":
		return c < 0, nil
	}
	return false, fmt.Errorf("unknown comparison %q", op)
}

// contains reports whether needle occurs in haystack: a substring of a string,
// an element of a list or a key of a mapping.
func contains(haystack, needle any) (bool, error) {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, transformer.Stringify(needle)), nil
	case []any:
		for _, v := range h {
			if transformer.Equal(v, needle) {
				return true, nil
			}
		}
		return false, nil
	case map[string]any:
		_, ok := h[transformer.Stringify(needle)]
		return ok, nil
	}
	return false, fmt.Errorf("%T does not support membership tests", haystack)
}

func validComparison(op string) error {
	if _, ok := comparisonOptions[op]; !ok {
		return fmt.Errorf("unknown comparison %q", op)
	}
	return nil
}

func newCompareValue(args config.Options, _ int, example records.Record) (any, error) {
	field, output := args.String("field", ""), args.String("output", "")
	op := args.String("comparison", "==")
	if err := validComparison(op); err != nil {
		return nil, err
	}
	raw := args.Any("value")
	if s, ok := raw.(string); ok && op == "in_list" {
		raw = splitLines(s)
	}
	value, err := transformer.CoerceLike(raw, example[field])
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	if op == "in_list" {
		if _, ok := value.([]any); !ok {
			value = []any{value}
		}
	}
	return rowFunc(func(r records.Record, _ int) (records.Record, error) {
		v, ok := r[field]
		if !ok {
			return r, nil
		}
		res, err := compare(op, v, value)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", field, err)
		}
		r[output] = res
		return r, nil
	}), nil
}

func newCompareColumns(args config.Options, _ int, _ records.Record) (any, error) {
	a, b := args.String("field_a", ""), args.String("field_b", "")
	output := args.String("output", "")
	op := args.String("comparison", "==")
	if err := validComparison(op); err != nil {
		return nil, err
	}
	return rowFunc(func(r records.Record, _ int) (records.Record, error) {
		if !present(r, a, b) {
			return r, nil
		}
		res, err := compare(op, r[a], r[b])
		if err != nil {
			return nil, fmt.Errorf("columns %q and %q: %w", a, b, err)
		}
		r[output] = res
		return r, nil
	}), nil
}

func newParity(args config.Options, _ int, _ records.Record) (any, error) {
	field, output := args.String("field", ""), args.String("output", "")
	parity := args.String("parity", "even")
	if parity != "even" && parity != "odd" {
		return nil, fmt.Errorf("parity must be even or odd, got %q", parity)
	}
	return rowFunc(func(r records.Record, _ int) (records.Record, error) {
		v, ok := r[field]
		if !ok {
			return r, nil
		}
		if transformer.IsMissing(v) {
			r[output] = nil
			return r, nil
		}
		n, ok := transformer.ToInt(v)
		if !ok {
			return nil, fmt.Errorf("column %q: %v is not an integer", field, v)
		}
		even := n%2 == 0
		r[output] = even == (parity == "even")
		return r, nil
	}), nil
}

func newLogical(args config.Options, _ int, _ records.Record) (any, error) {
	fields, err := columnList(args, "fields")
	if err != nil {
		return nil, err
	}
	output := args.String("output", "")
	op := args.String("comparison", args.String("operator", "and"))
	if op != "and" && op != "or" && op != "xor" {
		return nil, fmt.Errorf("operator must be and, or or xor, got %q", op)
	}
	return rowFunc(func(r records.Record, _ int) (records.Record, error) {
		if !present(r, fields...) {
			return r, nil
		}
		n := 0
		for _, f := range fields {
			if truthy(r[f]) {
				n++
			}
		}
		switch op {
		case "and":
			r[output] = n == len(fields)
		case "or":
			r[output] = n > 0
		default:
			r[output] = n == 1
		}
		return r, nil
	}), nil
}

// reduceDescriptor combines the values of the listed columns that are present
// in a row. A failing reduction yields nil.
func reduceDescriptor(key, title string, fn func([]any) (any, error)) transformer.Descriptor {
	return transformer.Descriptor{
		Key:    key,
		Title:  title,
		Fields: transformer.Fields{inputColumns("fields", "Inputs", "The columns to use as input"), outputColumn()},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			fields, err := columnList(args, "fields")
			if err != nil {
				return nil, err
			}
			output := args.String("output", "")
			return rowFunc(func(r records.Record, _ int) (records.Record, error) {
				vs := make([]any, 0, len(fields))
				for _, f := range fields {
					if v, ok := r[f]; ok {
						vs = append(vs, v)
					}
				}
				res, err := fn(vs)
				if err != nil {
					res = nil
				}
				r[output] = res
				return r, nil
			}), nil
		},
	}
}

// extreme returns the minimum (dir -1) or maximum (dir 1) value.
func extreme(vs []any, dir int) (any, error) {
	if len(vs) == 0 {
		return nil, fmt.Errorf("no values")
	}
	best := vs[0]
	for _, v := range vs[1:] {
		c, err := transformer.Compare(v, best)
		if err != nil {
			return nil, err
		}
		if c*dir > 0 {
			best = v
		}
	}
	return best, nil
}

func mean(vs []any) (any, error) {
	if len(vs) == 0 {
		return nil, fmt.Errorf("no values")
	}
	var sum float64
	for _, v := range vs {
		if !transformer.IsNumber(v) {
			return nil, fmt.Errorf("%v is not a number", v)
		}
		f, _ := transformer.ToFloat(v)
		sum += f
	}
	return sum / float64(len(vs)), nil
}

// mode returns the most frequent value; ties go to the value seen first.
func mode(vs []any) (any, error) {
	if len(vs) == 0 {
		return nil, fmt.Errorf("no values")
	}
	counts := make([]int, len(vs))
	best := 0
	for i, v := range vs {
		for j := 0; j <= i; j++ {
			if transformer.Equal(vs[j], v) {
				counts[j]++
				break
			}
		}
	}
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return vs[best], nil
}

func splitLines(s string) []any {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]any, 0, len(lines))
	for _, l := range lines {
		out = append(out, l)
	}
	return out
}
