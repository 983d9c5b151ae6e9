// Package builtin contains the transformation plugin set registered into
// transformer.Default.
//
// Row-wise transformations follow one convention: a row that lacks an input
// column is passed through unchanged. Only math-divide refuses missing
// operands. Filters remove the rows that MATCH their condition and report
// unusable input with transformer.ErrFilterInput so the row is kept.
package builtin

import (
	"fmt"
	"sort"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

// All returns every built-in descriptor in registration order.
func All() []transformer.Descriptor {
	var out []transformer.Descriptor
	for _, group := range [][]transformer.Descriptor{
		dataTransformations,
		mathTransformations,
		formatTransformations,
		countTransformations,
		replaceTransformations,
		comparisonTransformations,
		filterTransformations,
		literalTransformations,
		extractTransformations,
		datetimeTransformations,
		dictTransformations,
		splitTransformations,
		globalTransformations,
	} {
		out = append(out, group...)
	}
	return out
}

// Register adds every built-in descriptor to c.
func Register(c *transformer.Catalog) error {
	for _, d := range All() {
		if err := c.Register(d); err != nil {
			return fmt.Errorf("builtin: %w", err)
		}
	}
	return nil
}

func init() {
	if err := Register(transformer.Default); err != nil {
		panic(err)
	}
}

// rowFunc adapts a closure to transformer.Row.
type rowFunc func(records.Record, int) (records.Record, error)

func (f rowFunc) ApplyRow(r records.Record, i int) (records.Record, error) { return f(r, i) }

// flattenFunc adapts a closure to transformer.Flattener.
type flattenFunc func(records.Record, int) ([]records.Record, error)

func (f flattenFunc) Flatten(r records.Record, i int) ([]records.Record, error) { return f(r, i) }

// Parameter schema builders.

func inputColumn(key, name, help string) transformer.Field {
	return transformer.Field{Key: key, Name: name, Type: "string", Help: help, Input: "column", Required: true, Default: ""}
}

func inputColumns(key, name, help string) transformer.Field {
	return transformer.Field{Key: key, Name: name, Type: "list<string>", Help: help, Input: "column", Required: true, Multiple: true, Default: ""}
}

func outputColumn() transformer.Field {
	return transformer.Field{
		Key: "output", Name: "Output column", Type: "string", Input: "text", Required: true, Default: "",
		Help: "The name of the (newly created) column that contains the results",
	}
}

func textParam(key, name, help string) transformer.Field {
	return transformer.Field{Key: key, Name: name, Type: "string", Help: help, Input: "text", Required: true, Default: ""}
}

func numberParam(key, name, help string) transformer.Field {
	return transformer.Field{Key: key, Name: name, Type: "number", Help: help, Input: "number", Required: true, Default: 0}
}

func selectParam(key, name, help string, def string, options map[string]string) transformer.Field {
	return transformer.Field{Key: key, Name: name, Type: "string", Help: help, Input: "select", Required: true, Default: def, Options: options}
}

var comparisonOptions = map[string]string{
	"==": "==", ">=": ">=", ">": ">", "<=": "<=", "<": "<", "!=": "!=", "in": "in", "in_list": "in list",
}

// present reports whether every named column is in r.
func present(r records.Record, cols ...string) bool {
	for _, c := range cols {
		if _, ok := r[c]; !ok {
			return false
		}
	}
	return true
}

// text renders v for string transformations. nil, lists and mappings are not
// text.
func text(v any) (string, bool) {
	switch x := v.(type) {
	case nil, []any, map[string]any:
		return "", false
	case string:
		return x, true
	}
	return transformer.Stringify(v), true
}

// truthy follows the usual dynamic-language notion of truth.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	if f, ok := transformer.ToFloat(v); ok {
		return f != 0
	}
	return true
}

// requireString reads a required string parameter that may be empty.
func requireString(args config.Options, key string) (string, error) {
	if !args.Has(key) {
		return "", fmt.Errorf("%w %q", transformer.ErrMissingParameter, key)
	}
	return args.String(key, ""), nil
}

// columnList reads a list-of-columns parameter.
func columnList(args config.Options, key string) ([]string, error) {
	cols := args.StringSlice(key)
	if len(cols) == 0 {
		return nil, fmt.Errorf("%s: at least one column is required", key)
	}
	return cols, nil
}

// object converts an element of a list-of-objects parameter.
func object(v any) (config.Options, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case config.Options:
		return m, true
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
