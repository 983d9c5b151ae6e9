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

var replaceTransformations = []transformer.Descriptor{
	{
		Key:   "replace-text",
		Title: "Replace exact matches of {old} with {new} in {field} as {output}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			textParam("old", "Search", "The old substring you want to replace."),
			textParam("new", "New", "The new substring which would replace the old substring"),
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			old, err := requireString(args, "old")
			if err != nil {
				return nil, err
			}
			repl := args.String("new", "")
			return textToOutput(args, func(s string) (any, error) {
				return strings.ReplaceAll(s, old, repl), nil
			}), nil
		},
	},
	{
		Key:   "replace-regex",
		Title: "Replace matches of the regex {pattern} with {new} in {field} as {output}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			{Key: "pattern", Name: "Pattern", Type: "regex", Help: "The regex pattern that should be replaced", Input: "text", Required: true, Default: ""},
			textParam("new", "New", "The replacement; $1 refers to the first group"),
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			re, err := regexp.Compile(args.String("pattern", ""))
			if err != nil {
				return nil, fmt.Errorf("replace-regex: %w", err)
			}
			return replaceWith(args, re), nil
		},
	},
	{
		Key:   "replace-delimiters",
		Title: "Replace all characters between the delimiter: {delimiter} in {field} as {output}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			textParam("delimiter", "Delimiter", "The delimiter to split the string on"),
			textParam("new", "New", "The new substring which would replace the old substring"),
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			re, err := delimitedPattern(args)
			if err != nil {
				return nil, fmt.Errorf("replace-delimiters: %w", err)
			}
			return replaceWith(args, re), nil
		},
	},
	{
		Key:   "replace-positions",
		Title: "Replace all characters between pos. {start} - {end} with {new} into {output}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			numberParam("start", "Start", "The start position"),
			numberParam("end", "End", "The end position"),
			textParam("new", "New", "The new substring which would replace the old substring"),
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			start, end := args.Int("start", 0), args.Int("end", 0)
			repl := args.String("new", "")
			return textToOutput(args, func(s string) (any, error) {
				rs := []rune(s)
				lo, hi := clampSlice(len(rs), start, end)
				if hi < lo {
					hi = lo
				}
				return string(rs[:lo]) + repl + string(rs[hi:]), nil
			}), nil
		},
	},
	{
		Key:   "replace-mismatched",
		Title: "Replace mismatched values in {field} with {new}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			textParam("new", "New", "The new value"),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			return replaceWhen(args, func(v any) bool {
				f, ok := v.(float64)
				return ok && math.IsNaN(f)
			}), nil
		},
	},
	{
		Key:   "replace-missing",
		Title: "Replace missing values in {field} with {new}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			textParam("new", "New", "The new value"),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			return replaceWhen(args, func(v any) bool {
				if l, ok := v.([]any); ok {
					return len(l) == 0
				}
				return v == nil || v == ""
			}), nil
		},
	},
}

func replaceWith(args config.Options, re *regexp.Regexp) rowFunc {
	repl := args.String("new", "")
	return textToOutput(args, func(s string) (any, error) {
		return re.ReplaceAllString(s, repl), nil
	})
}

// replaceWhen sets field to "new" when match reports true.
func replaceWhen(args config.Options, match func(any) bool) rowFunc {
	field := args.String("field", "")
	repl := args.String("new", "")
	return func(r records.Record, _ int) (records.Record, error) {
		v, ok := r[field]
		if !ok || !match(v) {
			return r, nil
		}
		r[field] = repl
		return r, nil
	}
}

// delimitedPattern matches everything from the first to the last occurrence
// of the delimiter, newlines included.
func delimitedPattern(args config.Options) (*regexp.Regexp, error) {
	d, err := requireString(args, "delimiter")
	if err != nil {
		return nil, err
	}
	if d == "" {
		return nil, fmt.Errorf("delimiter must not be empty")
	}
	q := regexp.QuoteMeta(d)
	return regexp.Compile(q + `(?s:.*)` + q)
}

// clampSlice resolves slice bounds the way s[start:end] behaves in languages
// with negative indexing: negatives count from the end and everything is
// clamped to [0, n].
func clampSlice(n, start, end int) (int, int) {
	norm := func(i int) int {
		if i < 0 {
			i += n
		}
		return min(max(i, 0), n)
	}
	return norm(start), norm(end)
}
