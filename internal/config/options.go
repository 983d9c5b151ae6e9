package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Options is the parameter bag of a connector or transformation. The getters
// perform the small amount of coercion JSON and form-encoded callers need
// (numbers as float64 or json.Number, numbers and booleans as strings) and
// return def when a key is absent or unusable.
type Options map[string]any

// Has reports whether key is present.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// String returns the string value for key. Numbers and booleans are formatted.
func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	}
	return def
}

// Bool returns the boolean value for key. Strings are parsed with
// strconv.ParseBool.
func (o Options) Bool(key string, def bool) bool {
	switch b := o[key].(type) {
	case bool:
		return b
	case string:
		if v, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return v
		}
	}
	return def
}

// Int returns the integer value for key. Floats are truncated and strings
// parsed.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

// Float returns the float value for key.
func (o Options) Float(key string, def float64) float64 {
	switch n := o[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	if s, ok := o[key].(string); ok && len(s) > 0 {
		return []rune(s)[0]
	}
	return def
}

// StringMap returns the string-valued entries of an object value. Missing keys
// yield an empty map.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if m, ok := o[key].(map[string]any); ok {
		for k, vv := range m {
			if s, ok := vv.(string); ok {
				res[k] = s
			}
		}
	}
	return res
}

// StringSlice returns the strings of an array value. A lone string becomes a
// one-element slice. Missing keys yield nil.
func (o Options) StringSlice(key string) []string {
	switch vv := o[key].(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			switch s := x.(type) {
			case string:
				out = append(out, s)
			case json.Number:
				out = append(out, s.String())
			case float64, int, int64, bool:
				out = append(out, fmt.Sprint(s))
			}
		}
		return out
	case []string:
		return vv
	case string:
		if vv == "" {
			return nil
		}
		return []string{vv}
	}
	return nil
}

// List returns an array value as []any. Typed slices of maps, as built by Go
// callers, are converted.
func (o Options) List(key string) []any {
	switch vv := o[key].(type) {
	case []any:
		return vv
	case []map[string]any:
		out := make([]any, len(vv))
		for i, m := range vv {
			out[i] = m
		}
		return out
	case []Options:
		out := make([]any, len(vv))
		for i, m := range vv {
			out[i] = map[string]any(m)
		}
		return out
	}
	return nil
}

// Sub returns a nested object as Options, or an empty bag.
func (o Options) Sub(key string) Options {
	switch m := o[key].(type) {
	case map[string]any:
		return Options(m)
	case Options:
		return m
	}
	return Options{}
}

// Any returns the raw value for key.
func (o Options) Any(key string) any {
	return o[key]
}

// UnmarshalJSON decodes null or a missing object into an empty, non-nil bag.
// Numbers keep their textual form as json.Number so integers survive exactly.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&tmp); err != nil {
		return err
	}
	if tmp == nil {
		tmp = map[string]any{}
	}
	*o = Options(tmp)
	return nil
}
