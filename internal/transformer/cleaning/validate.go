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

var validateDescriptor = transformer.Descriptor{
	Key:   "clean-validate",
	Title: "Validate rows against a contract ({policy})",
	Fields: transformer.Fields{
		{
			Key: "contract", Name: "Contract", Type: "list<rule>", Input: "multiple", Required: true, Multiple: true, Default: "",
			Help: "One rule per column",
			SubFields: transformer.Fields{
				{Key: "name", Name: "Column", Type: "string", Input: "column", Required: true, Default: ""},
				{Key: "type", Name: "Type", Type: "string", Input: "select", Default: "text",
					Options: map[string]string{"int": "Integer", "bool": "Boolean", "date": "Date", "text": "Text"}},
				{Key: "required", Name: "Required", Type: "boolean", Input: "checkbox", Default: false},
				{Key: "enum", Name: "Allowed values", Type: "list<string>", Input: "text-area", Default: ""},
				{Key: "truthy", Name: "True values", Type: "list<string>", Input: "text-area", Default: ""},
				{Key: "falsy", Name: "False values", Type: "list<string>", Input: "text-area", Default: ""},
				{Key: "layout", Name: "Date layout", Type: "string", Input: "text", Default: ""},
			},
		},
		{Key: "date_layout", Name: "Fallback date layout", Type: "string", Input: "text", Default: "",
			Help: "Tried after the column layout and ISO dates"},
		{Key: "policy", Name: "Invalid rows", Type: "string", Input: "select", Default: "drop",
			Options: map[string]string{"drop": "Remove", "flag": "Keep and describe"}},
		{Key: "reason_column", Name: "Reason column", Type: "string", Input: "text", Default: "_invalid",
			Help: "Receives the reason of invalid rows under the flag policy"},
	},
	Flags: transformer.Flags{Filter: true},
	New:   newValidate,
}

// Rule constrains one column.
type Rule struct {
	Name     string
	Type     string // int, bool, date or text; database spellings are accepted
	Required bool
	Enum     []string
	Truthy   []string
	Falsy    []string
	Layout   string
}

// Validate checks records against a list of rules. Under the "drop" policy
// invalid rows are rejected; under "flag" they are kept and the reason is
// written to ReasonColumn (nil for valid rows).
type Validate struct {
	DateLayout   string // optional global fallback date layout
	Policy       string // "drop"|"flag"
	ReasonColumn string

	meta []fieldMeta
}

// fieldMeta captures hot-path data for a single rule.
type fieldMeta struct {
	name     string
	kind     string // "int","bool","date","string"
	required bool
	layout   string

	enumSet   map[string]struct{}
	truthySet map[string]struct{}
	falsySet  map[string]struct{}

	// Keep original enum list for error messages
	enumList []string
}

// default truthy/falsy sets (lowercased). Includes Czech "ano"/"ne".
var (
	defaultTruthy = map[string]struct{}{
		"1": {}, "t": {}, "true": {}, "yes": {}, "y": {}, "ano": {},
	}
	defaultFalsy = map[string]struct{}{
		"0": {}, "f": {}, "false": {}, "no": {}, "n": {}, "ne": {},
	}
)

func newValidate(args config.Options, _ int, _ records.Record) (any, error) {
	var rules []Rule
	for i, raw := range args.List("contract") {
		spec, ok := object(raw)
		if !ok {
			return nil, fmt.Errorf("clean-validate: contract[%d] is not an object", i)
		}
		r := Rule{
			Name:     spec.String("name", ""),
			Type:     spec.String("type", "text"),
			Required: spec.Bool("required", false),
			Enum:     spec.StringSlice("enum"),
			Truthy:   spec.StringSlice("truthy"),
			Falsy:    spec.StringSlice("falsy"),
			Layout:   spec.String("layout", ""),
		}
		if r.Name == "" {
			return nil, fmt.Errorf("clean-validate: contract[%d]: name is required", i)
		}
		rules = append(rules, r)
	}
	policy := args.String("policy", "drop")
	if policy != "drop" && policy != "flag" {
		return nil, fmt.Errorf("clean-validate: policy must be drop or flag, got %q", policy)
	}
	return NewValidate(rules, args.String("date_layout", ""), policy, args.String("reason_column", "_invalid")), nil
}

// NewValidate precomputes lookup sets for rules.
func NewValidate(rules []Rule, dateLayout, policy, reasonColumn string) *Validate {
	v := &Validate{DateLayout: dateLayout, Policy: policy, ReasonColumn: reasonColumn}
	v.meta = make([]fieldMeta, 0, len(rules))
	for _, f := range rules {
		m := fieldMeta{
			name:     f.Name,
			kind:     normalizeKind(f.Type),
			required: f.Required,
			layout:   f.Layout,
		}
		if len(f.Enum) > 0 {
			m.enumSet = make(map[string]struct{}, len(f.Enum))
			for _, s := range f.Enum {
				m.enumSet[s] = struct{}{}
			}
			m.enumList = append(m.enumList, f.Enum...)
		}
		m.truthySet = lowerSet(f.Truthy)
		m.falsySet = lowerSet(f.Falsy)
		v.meta = append(v.meta, m)
	}
	return v
}

func lowerSet(vals []string) map[string]struct{} {
	if len(vals) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(vals))
	for _, s := range vals {
		out[strings.ToLower(s)] = struct{}{}
	}
	return out
}

// ApplyRow satisfies transformer.Row.
func (v *Validate) ApplyRow(r records.Record, _ int) (records.Record, error) {
	reason := v.check(r)
	if v.Policy == "flag" {
		if reason == "" {
			r[v.ReasonColumn] = nil
		} else {
			r[v.ReasonColumn] = reason
		}
		return r, nil
	}
	if reason != "" {
		return nil, nil
	}
	return r, nil
}

// check returns the first violation in r, or "".
func (v *Validate) check(r records.Record) string {
	for i := range v.meta {
		fm := &v.meta[i]
		val, exists := r[fm.name]
		empty := !exists || val == nil || val == ""

		if fm.required && empty {
			return fmt.Sprintf("required field %q missing", fm.name)
		}
		if empty {
			continue
		}

		switch fm.kind {
		case "int":
			switch t := val.(type) {
			case int, int32, int64:
			case float64:
				if _, ok := transformer.ToInt(t); !ok {
					return fmt.Sprintf("field %q: %v not an int", fm.name, t)
				}
			case string:
				if _, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err != nil {
					return fmt.Sprintf("field %q: %q not an int", fm.name, t)
				}
			default:
				return fmt.Sprintf("field %q: type %T not int-convertible", fm.name, t)
			}

		case "bool":
			if _, ok := val.(bool); ok {
				break
			}
			s := strings.ToLower(strings.TrimSpace(transformer.Stringify(val)))
			if !isBoolInSets(s, fm.truthySet, fm.falsySet) {
				return fmt.Sprintf("field %q: %q not a recognized boolean", fm.name, transformer.Stringify(val))
			}

		case "date":
			switch t := val.(type) {
			case time.Time:
			case string:
				s := strings.TrimSpace(t)
				if s != "" && !parseAnyDate(s, fm.layout, v.DateLayout) {
					return fmt.Sprintf("field %q: invalid date %q", fm.name, s)
				}
			default:
				return fmt.Sprintf("field %q: type %T not date-convertible", fm.name, t)
			}
		}

		// Enum is compared on the text form of the value.
		if fm.enumSet != nil {
			s := transformer.Stringify(val)
			if _, ok := fm.enumSet[s]; !ok {
				return fmt.Sprintf("field %q: %q not in enum %v", fm.name, s, fm.enumList)
			}
		}
	}
	return ""
}

// isBoolInSets checks membership against custom sets if provided; otherwise
// falls back to the default truthy/falsy sets. 's' must already be lowercased.
func isBoolInSets(s string, truthy, falsy map[string]struct{}) bool {
	if s == "" {
		return true
	}
	if truthy == nil && falsy == nil {
		truthy, falsy = defaultTruthy, defaultFalsy
	}
	if _, ok := truthy[s]; ok {
		return true
	}
	_, ok := falsy[s]
	return ok
}

// parseAnyDate attempts (in order): field layout, ISO (2006-01-02),
// then global layout if provided.
func parseAnyDate(s, fieldLayout, globalLayout string) bool {
	for _, layout := range []string{fieldLayout, "2006-01-02", globalLayout} {
		if layout == "" {
			continue
		}
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// normalizeKind maps rule types onto the small set of validator kinds.
//
//	"bigint", "int8", "integer" → "int"
//	"boolean"                   → "bool"
//	"date", "timestamp"         → "date"
//	anything else               → "string"
func normalizeKind(t string) string {
	switch strings.ToLower(t) {
	case "bigint", "int8", "integer", "int4", "int2", "int":
		return "int"
	case "boolean", "bool":
		return "bool"
	case "date", "timestamp", "timestamptz":
		return "date"
	}
	return "string"
}
