package builtin

import (
	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

var dictTransformations = []transformer.Descriptor{
	{
		Key:    "dict-keys",
		Title:  "Get the keys of the dictionary in {field}",
		Fields: transformer.Fields{inputColumn("field", "Input", "The column to use as input"), outputColumn()},
		New: dictFactory(func(m map[string]any, _ string) any {
			keys := sortedKeys(m)
			out := make([]any, len(keys))
			for i, k := range keys {
				out[i] = k
			}
			return out
		}),
	},
	{
		Key:    "dict-values",
		Title:  "Get the values of the dictionary in {field}",
		Fields: transformer.Fields{inputColumn("field", "Input", "The column to use as input"), outputColumn()},
		New: dictFactory(func(m map[string]any, _ string) any {
			keys := sortedKeys(m)
			out := make([]any, len(keys))
			for i, k := range keys {
				out[i] = m[k]
			}
			return out
		}),
	},
	{
		Key:   "dict-get",
		Title: "Get the value of the dictionary in {field} for key {key}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			textParam("key", "Key", "The key to look up"),
			outputColumn(),
		},
		New: dictFactory(func(m map[string]any, key string) any { return m[key] }),
	},
}

// dictFactory applies fn to mapping values. Rows whose value is not a mapping
// get nil.
func dictFactory(fn func(m map[string]any, key string) any) transformer.Factory {
	return func(args config.Options, _ int, _ records.Record) (any, error) {
		field, output := args.String("field", ""), args.String("output", "")
		key := args.String("key", "")
		return rowFunc(func(r records.Record, _ int) (records.Record, error) {
			v, ok := r[field]
			if !ok {
				return r, nil
			}
			var m map[string]any
			switch x := v.(type) {
			case map[string]any:
				m = x
			case records.Record:
				m = x
			default:
				r[output] = nil
				return r, nil
			}
			r[output] = fn(m, key)
			return r, nil
		}), nil
	}
}
