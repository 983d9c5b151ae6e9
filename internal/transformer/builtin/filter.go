package builtin

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

// A filter drops the rows its predicate matches. Predicates return
// transformer.ErrFilterInput (wrapped) for values they cannot judge.
type predicate func(v any) (bool, error)

func filterDescriptor(key, title string, fields transformer.Fields, build func(config.Options, records.Record) (predicate, error)) transformer.Descriptor {
	return transformer.Descriptor{
		Key:    key,
		Title:  title,
		Fields: append(transformer.Fields{inputColumn("field", "Input", "The column to use as input")}, fields...),
		Flags:  transformer.Flags{Filter: true},
		New: func(args config.Options, _ int, example records.Record) (any, error) {
			match, err := build(args, example)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			field := args.String("field", "")
			return rowFunc(func(r records.Record, _ int) (records.Record, error) {
				v, ok := r[field]
				if !ok {
					return r, nil
				}
				drop, err := match(v)
				if err != nil {
					return nil, fmt.Errorf("column %q: %w", field, err)
				}
				if drop {
					return nil, nil
				}
				return r, nil
			}), nil
		},
	}
}

func badInput(v any, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", transformer.ErrFilterInput, err)
	}
	return fmt.Errorf("%w: %v (%T)", transformer.ErrFilterInput, v, v)
}

var searchField = textParam("search", "Search", "The string to search for")

var linesField = transformer.Field{
	Key: "search", Name: "Search", Type: "string", Help: "The values to search for (one per line)",
	Input: "text-area", Required: true, Default: "",
}

func thresholdField(key, help string) transformer.Field {
	return numberParam(key, "Threshold", help)
}

// operand coerces a parameter to the type of the example value in field. A
// value that does not parse as that type is compared as text.
func operand(args config.Options, key string, example records.Record) any {
	raw := args.Any(key)
	v, err := transformer.CoerceLike(raw, example[args.String("field", "")])
	if err != nil {
		if n, ok := transformer.Number(raw); ok {
			return n
		}
		return args.String(key, "")
	}
	return v
}

// numericOperand reads a threshold as int64 or float64.
func numericOperand(args config.Options, key string) (any, error) {
	n, ok := transformer.Number(args.Any(key))
	if !ok {
		return nil, fmt.Errorf("%s: %v is not a number", key, args.Any(key))
	}
	return n, nil
}

func orderedPredicate(threshold any, keep func(int) bool) predicate {
	return func(v any) (bool, error) {
		if transformer.IsMissing(v) {
			return false, badInput(v, nil)
		}
		c, err := transformer.Compare(v, threshold)
		if err != nil {
			return false, badInput(v, err)
		}
		return keep(c), nil
	}
}

func between(lo, hi any) predicate {
	return func(v any) (bool, error) {
		if transformer.IsMissing(v) {
			return false, badInput(v, nil)
		}
		a, err := transformer.Compare(lo, v)
		if err != nil {
			return false, badInput(v, err)
		}
		b, err := transformer.Compare(v, hi)
		if err != nil {
			return false, badInput(v, err)
		}
		return a < 0 && b < 0, nil
	}
}

func textPredicate(fn func(s string) bool) predicate {
	return func(v any) (bool, error) {
		s, ok := text(v)
		if !ok {
			return false, badInput(v, nil)
		}
		return fn(s), nil
	}
}

func oneOf(args config.Options, example records.Record) []any {
	lines := splitLines(args.String("search", ""))
	col := example[args.String("field", "")]
	out := make([]any, len(lines))
	for i, l := range lines {
		v, err := transformer.CoerceLike(l, col)
		if err != nil {
			v = l
		}
		out[i] = v
	}
	return out
}

func member(v any, set []any) bool {
	for _, s := range set {
		if transformer.Equal(v, s) {
			return true
		}
	}
	return false
}

var filterTransformations = []transformer.Descriptor{
	filterDescriptor("filter-missing", "Filter rows with missing values in {field}", nil,
		func(config.Options, records.Record) (predicate, error) {
			return func(v any) (bool, error) {
				if l, ok := v.([]any); ok {
					return len(l) == 0, nil
				}
				return transformer.IsMissing(v), nil
			}, nil
		}),
	filterDescriptor("filter-mismatched", "Filter rows with mismatched values in {field}", nil,
		func(config.Options, records.Record) (predicate, error) {
			return func(v any) (bool, error) {
				f, ok := v.(float64)
				return ok && math.IsNaN(f), nil
			}, nil
		}),
	filterDescriptor("filter-is", "Filter rows where {field} matches {search}", transformer.Fields{searchField},
		func(args config.Options, example records.Record) (predicate, error) {
			want := operand(args, "search", example)
			return func(v any) (bool, error) { return transformer.Equal(v, want), nil }, nil
		}),
	filterDescriptor("filter-is-not", "Filter rows where {field} does not equal {search}", transformer.Fields{searchField},
		func(args config.Options, example records.Record) (predicate, error) {
			want := operand(args, "search", example)
			return func(v any) (bool, error) { return !transformer.Equal(v, want), nil }, nil
		}),
	filterDescriptor("filter-is-one-of", "Filter rows where {field} is one of", transformer.Fields{linesField},
		func(args config.Options, example records.Record) (predicate, error) {
			set := oneOf(args, example)
			return func(v any) (bool, error) { return member(v, set), nil }, nil
		}),
	filterDescriptor("filter-is-not-one-of", "Filter rows where {field} is not one of", transformer.Fields{linesField},
		func(args config.Options, example records.Record) (predicate, error) {
			set := oneOf(args, example)
			return func(v any) (bool, error) { return !member(v, set), nil }, nil
		}),
	filterDescriptor("filter-less-than", "Filter rows where {field} is lower than {threshold}",
		transformer.Fields{thresholdField("threshold", "The threshold value")},
		func(args config.Options, _ records.Record) (predicate, error) {
			t, err := numericOperand(args, "threshold")
			if err != nil {
				return nil, err
			}
			return orderedPredicate(t, func(c int) bool { return c < 0 }), nil
		}),
	filterDescriptor("filter-greater-than", "Filter rows where {field} is higher than {threshold}",
		transformer.Fields{thresholdField("threshold", "The threshold value")},
		func(args config.Options, _ records.Record) (predicate, error) {
			t, err := numericOperand(args, "threshold")
			if err != nil {
				return nil, err
			}
			return orderedPredicate(t, func(c int) bool { return c > 0 }), nil
		}),
	filterDescriptor("filter-between", "Filter rows where {field} is between {min} and {max}",
		transformer.Fields{thresholdField("min", "The bottom of the range"), thresholdField("max", "The top of the range")},
		func(args config.Options, _ records.Record) (predicate, error) {
			lo, err := numericOperand(args, "min")
			if err != nil {
				return nil, err
			}
			hi, err := numericOperand(args, "max")
			if err != nil {
				return nil, err
			}
			return between(lo, hi), nil
		}),
	filterDescriptor("filter-not-between", "Filter rows where {field} is not between {min} and {max}",
		transformer.Fields{thresholdField("min", "The bottom of the range"), thresholdField("max", "The top of the range")},
		func(args config.Options, _ records.Record) (predicate, error) {
			lo, err := numericOperand(args, "min")
			if err != nil {
				return nil, err
			}
			hi, err := numericOperand(args, "max")
			if err != nil {
				return nil, err
			}
			inside := between(lo, hi)
			return func(v any) (bool, error) {
				ok, err := inside(v)
				return !ok, err
			}, nil
		}),
	filterDescriptor("filter-contains", "Filter rows where {field} contains {search}", transformer.Fields{searchField},
		func(args config.Options, _ records.Record) (predicate, error) {
			search := args.String("search", "")
			return textPredicate(func(s string) bool { return strings.Contains(s, search) }), nil
		}),
	filterDescriptor("filter-starts-with", "Filter rows where {field} starts with {search}", transformer.Fields{searchField},
		func(args config.Options, _ records.Record) (predicate, error) {
			search := args.String("search", "")
			return textPredicate(func(s string) bool { return strings.HasPrefix(s, search) }), nil
		}),
	filterDescriptor("filter-ends-with", "Filter rows where {field} ends with {search}", transformer.Fields{searchField},
		func(args config.Options, _ records.Record) (predicate, error) {
			search := args.String("search", "")
			return textPredicate(func(s string) bool { return strings.HasSuffix(s, search) }), nil
		}),
	filterDescriptor("filter-regex", "Filter rows where {field} matches {search}",
		transformer.Fields{textParam("search", "Search", "The regex pattern to match")},
		func(args config.Options, _ records.Record) (predicate, error) {
			// Anchored at the start of the value, like a match rather than a search.
			re, err := regexp.Compile(`^(?:` + args.String("search", "") + `)`)
			if err != nil {
				return nil, err
			}
			return textPredicate(re.MatchString), nil
		}),
}
