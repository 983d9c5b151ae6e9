package transformer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrIncomparable is returned by Compare for values without a common order.
var ErrIncomparable = errors.New("values are not comparable")

// ToFloat converts numeric values and numeric strings to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// ToInt converts integral values and integer strings to int64. Floats are
// accepted only when they have no fractional part.
func ToInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int64(n), true
		}
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// IsInteger reports whether v holds a Go integer type.
func IsInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// IsNumber reports whether v holds a Go numeric type.
func IsNumber(v any) bool {
	switch v.(type) {
	case float32, float64, json.Number:
		return true
	}
	return IsInteger(v)
}

// Number converts v to int64 when it is integral text or an integer, and to
// float64 otherwise. Strings that are not numbers fail.
func Number(v any) (any, bool) {
	if IsInteger(v) {
		i, _ := ToInt(v)
		return i, true
	}
	switch x := v.(type) {
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return i, true
		}
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
	}
	if f, ok := ToFloat(v); ok {
		if _, isBool := v.(bool); isBool {
			return nil, false
		}
		return f, true
	}
	return nil, false
}

// IsMissing reports nil, NaN and the empty string.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case string:
		return x == ""
	}
	return false
}

// Compare orders two values. Numbers compare numerically across int and float
// representations, strings lexicographically, times chronologically and
// booleans false before true. nil sorts before everything.
func Compare(a, b any) (int, error) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, nil
		case a == nil:
			return -1, nil
		default:
			return 1, nil
		}
	}
	if IsNumber(a) && IsNumber(b) {
		if ai, ok := a.(int64); ok {
			if bi, ok := b.(int64); ok {
				return cmpOrdered(ai, bi), nil
			}
		}
		af, _ := ToFloat(a)
		bf, _ := ToFloat(b)
		return cmpOrdered(af, bf), nil
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), nil
		}
	}
	return 0, fmt.Errorf("%w: %T and %T", ErrIncomparable, a, b)
}

// Equal reports whether two values are equal, treating numbers by value.
func Equal(a, b any) bool {
	if IsNumber(a) && IsNumber(b) {
		c, _ := Compare(a, b)
		return c == 0
	}
	switch x := a.(type) {
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, ok := y[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	c, err := Compare(a, b)
	return err == nil && c == 0
}

// Stringify renders a value the way text transformations see it.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
