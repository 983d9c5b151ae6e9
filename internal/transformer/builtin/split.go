package builtin

import (
	"strings"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

var splitTransformations = []transformer.Descriptor{
	{
		Key:   "split-delimiter",
		Title: "Split {field} on {delimiter} into {output}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			textParam("delimiter", "Delimiter", "The delimiter to split the string on"),
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			delim, err := requireString(args, "delimiter")
			if err != nil {
				return nil, err
			}
			return textToOutput(args, func(s string) (any, error) {
				var parts []string
				if delim == "" {
					parts = strings.Fields(s)
				} else {
					parts = strings.Split(s, delim)
				}
				out := make([]any, len(parts))
				for i, p := range parts {
					out[i] = p
				}
				return out, nil
			}), nil
		},
	},
	{
		Key:   "array-explode",
		Title: "Create one row per element of {field}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The list column to explode"),
			{Key: "output", Name: "Output column", Type: "string", Input: "text", Default: "",
				Help: "The column that receives the element; defaults to the input column"},
		},
		Flags: transformer.Flags{Flatten: true},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			field := args.String("field", "")
			output := args.String("output", "")
			if output == "" {
				output = field
			}
			return flattenFunc(func(r records.Record, _ int) ([]records.Record, error) {
				l, ok := r[field].([]any)
				if !ok {
					return []records.Record{r}, nil
				}
				if len(l) == 0 {
					r[output] = nil
					return []records.Record{r}, nil
				}
				out := make([]records.Record, len(l))
				for i, v := range l {
					c := r.Clone()
					c[output] = v
					out[i] = c
				}
				return out, nil
			}), nil
		},
	},
}
