package cleaning

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

var coerceDescriptor = transformer.Descriptor{
	Key:   "clean-coerce",
	Title: "Coerce column types",
	Fields: transformer.Fields{
		{Key: "types", Name: "Types", Type: "map<string,string>", Input: "multiple", Required: true, Default: "",
			Help: "Column to type: int, float, bool, date or string"},
		{Key: "layout", Name: "Date layout", Type: "string", Input: "text", Default: "2006-01-02",
			Help: "Layout used to parse date columns"},
	},
	New: func(args config.Options, _ int, _ records.Record) (any, error) {
		c := Coerce{Types: args.StringMap("types"), Layout: args.String("layout", "2006-01-02")}
		for field, typ := range c.Types {
			switch typ {
			case "int", "float", "bool", "date", "string":
			default:
				return nil, fmt.Errorf("clean-coerce: column %q: unknown type %q", field, typ)
			}
		}
		return c, nil
	},
}

// Coerce parses string values into typed values. Values that do not parse,
// nil values and values that are not strings are left as they are.
type Coerce struct {
	Types  map[string]string // field -> one of: int, float, bool, date, string
	Layout string            // date layout
}

// ApplyRow satisfies transformer.Row.
func (c Coerce) ApplyRow(r records.Record, _ int) (records.Record, error) {
	for field, typ := range c.Types {
		s, ok := r[field].(string)
		if !ok {
			continue
		}
		if hasEdgeSpace(s) {
			s = strings.TrimSpace(s)
		}
		switch typ {
		case "int":
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				r[field] = i
			}
		case "float":
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				r[field] = f
			}
		case "bool":
			if b, err := strconv.ParseBool(s); err == nil {
				r[field] = b
			}
		case "date":
			if t, err := time.Parse(c.Layout, s); err == nil {
				r[field] = t
			}
		case "string":
			// already string
		}
	}
	return r, nil
}
