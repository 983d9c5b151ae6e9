package cleaning

import (
	"fmt"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

var requireDescriptor = transformer.Descriptor{
	Key:    "clean-require",
	Title:  "Remove rows without a value in {fields}",
	Fields: transformer.Fields{columnsField("Every listed column must hold a value", true)},
	Flags:  transformer.Flags{Filter: true},
	New: func(args config.Options, _ int, _ records.Record) (any, error) {
		fields := args.StringSlice("fields")
		if len(fields) == 0 {
			return nil, fmt.Errorf("clean-require: at least one column is required")
		}
		return Require{Fields: fields}, nil
	},
}

// Require removes any record missing a value for one of the specified fields.
// nil and the empty string count as missing.
type Require struct {
	Fields []string
}

// ApplyRow satisfies transformer.Row; rejected rows come back nil.
func (q Require) ApplyRow(rec records.Record, _ int) (records.Record, error) {
	for _, f := range q.Fields {
		v, exists := rec[f]
		if !exists || v == nil || v == "" {
			return nil, nil
		}
	}
	return rec, nil
}
