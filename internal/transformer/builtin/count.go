package builtin

import (
	"fmt"
	"regexp"
	"strings"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

var countTransformations = []transformer.Descriptor{
	{
		Key:   "count-exact",
		Title: "Count exact matches of {search} in {field} as {output}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			textParam("search", "Search", "The string to search for"),
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			search, err := requireString(args, "search")
			if err != nil {
				return nil, err
			}
			return textToOutput(args, func(s string) (any, error) {
				return int64(strings.Count(s, search)), nil
			}), nil
		},
	},
	{
		Key:   "count-pattern",
		Title: "Count matches of the regex {pattern} in {field} as {output}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			{Key: "pattern", Name: "Pattern", Type: "regex", Help: "The regex pattern to look for", Input: "text", Required: true, Default: ""},
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			re, err := regexp.Compile(args.String("pattern", ""))
			if err != nil {
				return nil, fmt.Errorf("count-pattern: %w", err)
			}
			return textToOutput(args, func(s string) (any, error) {
				return int64(len(re.FindAllStringIndex(s, -1))), nil
			}), nil
		},
	},
	{
		Key:   "count-delimiters",
		Title: "Count the number of strings between delimiter {delimiter} in {field} as {output}",
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
				return int64(strings.Count(s, delim) + 1), nil
			}), nil
		},
	},
}

// textToOutput reads the text column "field" and stores fn's result in
// "output" (or back into field when output is empty). Rows missing the
// column pass through; non-text values are an error.
func textToOutput(args config.Options, fn func(string) (any, error)) rowFunc {
	field := args.String("field", "")
	output := args.String("output", field)
	if output == "" {
		output = field
	}
	return func(r records.Record, _ int) (records.Record, error) {
		v, ok := r[field]
		if !ok {
			return r, nil
		}
		s, ok := text(v)
		if !ok {
			if v == nil {
				r[output] = nil
				return r, nil
			}
			return nil, fmt.Errorf("column %q: %T is not text", field, v)
		}
		out, err := fn(s)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", field, err)
		}
		r[output] = out
		return r, nil
	}
}
