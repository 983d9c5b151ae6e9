package builtin

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
	"datascout/pkg/textnorm"
)

var extractTransformations = []transformer.Descriptor{
	{
		Key:    "extract-numbers",
		Title:  "Extract numbers from {field} into {output}",
		Fields: transformer.Fields{inputColumn("field", "Input", "The column to use as input"), outputColumn()},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			return textToOutput(args, func(s string) (any, error) {
				out := []any{}
				for _, tok := range strings.Fields(s) {
					if f, err := strconv.ParseFloat(tok, 64); err == nil {
						out = append(out, f)
					}
				}
				return out, nil
			}), nil
		},
	},
	{
		Key:    "extract-integers",
		Title:  "Extract whole numbers from {field} into {output}",
		Fields: transformer.Fields{inputColumn("field", "Input", "The column to use as input"), outputColumn()},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			return textToOutput(args, func(s string) (any, error) {
				ns, ok := textnorm.Integers(s)
				if !ok {
					return nil, nil
				}
				out := make([]any, len(ns))
				for i, n := range ns {
					out[i] = n
				}
				return out, nil
			}), nil
		},
	},
	{
		Key:   "extract-between",
		Title: "Extract the text between {start} and {end} in {field} into {output}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			{Key: "start", Name: "Start", Type: "string", Input: "text", Default: "", Help: "The text before the value; the beginning when empty"},
			{Key: "end", Name: "End", Type: "string", Input: "text", Default: "", Help: "The text after the value; the end when empty"},
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			start, end := args.String("start", ""), args.String("end", "")
			return textToOutput(args, func(s string) (any, error) {
				if v, ok := textnorm.Between(s, start, end); ok {
					return v, nil
				}
				return nil, nil
			}), nil
		},
	},
	{
		Key:    "extract-httpquerystrings",
		Title:  "Extract HTTP query string from {field} into {output}",
		Fields: transformer.Fields{inputColumn("field", "Input", "The column to use as input"), outputColumn()},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			return textToOutput(args, func(s string) (any, error) {
				out := map[string]any{}
				u, err := url.Parse(s)
				if err != nil {
					return out, nil
				}
				q, err := url.ParseQuery(u.RawQuery)
				if err != nil {
					return out, nil
				}
				for k, vs := range q {
					l := make([]any, len(vs))
					for i, v := range vs {
						l[i] = v
					}
					out[k] = l
				}
				return out, nil
			}), nil
		},
	},
	{
		Key:   "extract-regex",
		Title: "Extract regex from {field} into {output}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			{Key: "pattern", Name: "Pattern", Type: "regex", Help: "The regex pattern to extract", Input: "text", Required: true, Default: ""},
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			re, err := regexp.Compile(args.String("pattern", ""))
			if err != nil {
				return nil, fmt.Errorf("extract-regex: %w", err)
			}
			return textToOutput(args, func(s string) (any, error) { return findAll(re, s), nil }), nil
		},
	},
	{
		Key:   "extract-delimiters",
		Title: "Extract the text between the delimiter: {delimiter} in {field} as {output}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			textParam("delimiter", "Delimiter", "The delimiter to split the string on"),
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			re, err := delimitedPattern(args)
			if err != nil {
				return nil, fmt.Errorf("extract-delimiters: %w", err)
			}
			return textToOutput(args, func(s string) (any, error) { return findAll(re, s), nil }), nil
		},
	},
	{
		Key:   "extract-positions",
		Title: "Extract the characters between pos. {start} - {end} into {output}",
		Fields: transformer.Fields{
			inputColumn("field", "Input", "The column to use as input"),
			numberParam("start", "Start", "The start position"),
			numberParam("end", "End", "The end position"),
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			start, end := args.Int("start", 0), args.Int("end", 0)
			return textToOutput(args, func(s string) (any, error) {
				rs := []rune(s)
				lo, hi := clampSlice(len(rs), start, end)
				if hi <= lo {
					return "", nil
				}
				return string(rs[lo:hi]), nil
			}), nil
		},
	},
}

// findAll lists matches: whole matches without groups, the group with one
// group, and a list of groups otherwise.
func findAll(re *regexp.Regexp, s string) []any {
	out := []any{}
	groups := re.NumSubexp()
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		switch groups {
		case 0:
			out = append(out, m[0])
		case 1:
			out = append(out, m[1])
		default:
			g := make([]any, groups)
			for i := range g {
				g[i] = m[i+1]
			}
			out = append(out, g)
		}
	}
	return out
}
