package transformer

import (
	"fmt"
	"strconv"
	"strings"
)

// CoerceLike converts a textual operand to the type of example, the value the
// operand will be compared with. It is used at construction time so a filter
// threshold "5" becomes int64 5 for an int column and float64 5 for a float
// column.
//
//   - raw may be a string, a []string or a []any of strings; a single element
//     yields a scalar, several elements a []any.
//   - If example is a list its first element decides the type.
//   - int64, float64 and bool examples parse the operand; any other example
//     leaves it as text.
func CoerceLike(raw any, example any) (any, error) {
	if l, ok := example.([]any); ok {
		example = nil
		if len(l) > 0 {
			example = l[0]
		}
	}
	search := operandStrings(raw)
	if len(search) == 1 {
		return coerceOne(search[0], example)
	}
	out := make([]any, len(search))
	for i, s := range search {
		v, err := coerceOne(s, example)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func operandStrings(raw any) []string {
	switch x := raw.(type) {
	case nil:
		return []string{""}
	case string:
		return []string{x}
	case []string:
		return x
	case []any:
		out := make([]string, len(x))
		for i, v := range x {
			out[i] = Stringify(v)
		}
		return out
	}
	return []string{Stringify(raw)}
}

func coerceOne(s string, example any) (any, error) {
	switch {
	case example == nil:
		return s, nil
	case IsInteger(example):
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", s)
		}
		return i, nil
	case IsNumber(example):
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return f, nil
	}
	if _, ok := example.(bool); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", s)
		}
		return b, nil
	}
	return s, nil
}
