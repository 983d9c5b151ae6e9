package builtin

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

var dataTransformations = []transformer.Descriptor{
	{
		Key:   "data-convert",
		Title: "Convert {field} to {to}",
		Fields: transformer.Fields{
			inputColumn("field", "Field", "The field to convert"),
			selectParam("to", "To", "To which data type to convert", "", map[string]string{
				"int": "Integer", "float": "Floating point number", "string": "Text", "bool": "Boolean",
			}),
		},
		New: newConvert,
	},
}

func newConvert(args config.Options, _ int, _ records.Record) (any, error) {
	field := args.String("field", "")
	to := args.String("to", "")
	if to == "Floating point number" {
		to = "float"
	}
	switch to {
	case "int", "float", "string", "bool":
	default:
		return nil, fmt.Errorf("data-convert: unknown target type %q", to)
	}
	return rowFunc(func(r records.Record, _ int) (records.Record, error) {
		v, ok := r[field]
		if !ok || v == nil {
			return r, nil
		}
		out, err := convert(v, to)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", field, err)
		}
		r[field] = out
		return r, nil
	}), nil
}

func convert(v any, to string) (any, error) {
	switch to {
	case "string":
		return transformer.Stringify(v), nil
	case "bool":
		if s, ok := v.(string); ok {
			return strconv.ParseBool(strings.TrimSpace(s))
		}
		return truthy(v), nil
	case "float":
		f, ok := transformer.ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("cannot convert %v to float", v)
		}
		return f, nil
	}
	if s, ok := v.(string); ok {
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to int", s)
		}
		return i, nil
	}
	f, ok := transformer.ToFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("cannot convert %v to int", v)
	}
	return int64(f), nil
}
