package cleaning

import (
	"strings"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

const nbsp = "\u00a0"

var normalizeDescriptor = transformer.Descriptor{
	Key:    "clean-normalize",
	Title:  "Normalize whitespace in {fields}",
	Fields: transformer.Fields{columnsField("The text columns to normalize; all when empty", false)},
	New: func(args config.Options, _ int, _ records.Record) (any, error) {
		return Normalize{Fields: args.StringSlice("fields")}, nil
	},
}

// Normalize replaces no-break spaces with ASCII spaces and trims text values.
// With no Fields every string value of the row is normalized.
type Normalize struct {
	Fields []string
}

// ApplyRow satisfies transformer.Row. The record is changed in place.
func (n Normalize) ApplyRow(r records.Record, _ int) (records.Record, error) {
	if len(n.Fields) == 0 {
		for k, v := range r {
			if s, ok := v.(string); ok {
				r[k] = normalizeText(s)
			}
		}
		return r, nil
	}
	for _, k := range n.Fields {
		if s, ok := r[k].(string); ok {
			r[k] = normalizeText(s)
		}
	}
	return r, nil
}

func normalizeText(s string) string {
	if strings.Contains(s, nbsp) {
		s = strings.ReplaceAll(s, nbsp, " ")
	}
	if hasEdgeSpace(s) {
		s = strings.TrimSpace(s)
	}
	return s
}
