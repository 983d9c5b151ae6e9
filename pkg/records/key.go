package records

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// AppendKey appends a canonical, type-tagged encoding of v to b. Numbers are
// encoded by value, so int64(1) and float64(1) produce the same bytes, and
// mappings are encoded in sorted key order.
func AppendKey(b []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(b, 'z')
	case string:
		b = append(b, 's')
		b = strconv.AppendInt(b, int64(len(x)), 10)
		b = append(b, ':')
		return append(b, x...)
	case bool:
		if x {
			return append(b, 'T')
		}
		return append(b, 'F')
	case int64:
		return appendNumber(b, float64(x), x, true)
	case int:
		return appendNumber(b, float64(x), int64(x), true)
	case int32:
		return appendNumber(b, float64(x), int64(x), true)
	case float64:
		return appendNumber(b, x, 0, false)
	case float32:
		return appendNumber(b, float64(x), 0, false)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return appendNumber(b, float64(i), i, true)
		}
		f, _ := x.Float64()
		return appendNumber(b, f, 0, false)
	case time.Time:
		b = append(b, 't')
		return x.UTC().AppendFormat(b, time.RFC3339Nano)
	case []any:
		b = append(b, '[')
		for _, e := range x {
			b = AppendKey(b, e)
			b = append(b, ',')
		}
		return append(b, ']')
	case map[string]any:
		return appendMap(b, x)
	case Record:
		return appendMap(b, x)
	}
	b = append(b, '?')
	return fmt.Append(b, v)
}

func appendNumber(b []byte, f float64, i int64, isInt bool) []byte {
	b = append(b, 'n')
	if isInt {
		return strconv.AppendInt(b, i, 10)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.AppendInt(b, int64(f), 10)
	}
	if math.IsNaN(f) {
		return append(b, "NaN"...)
	}
	return strconv.AppendFloat(b, f, 'g', -1, 64)
}

func appendMap(b []byte, m map[string]any) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b = append(b, '{')
	for _, k := range keys {
		b = AppendKey(b, k)
		b = append(b, '=')
		b = AppendKey(b, m[k])
		b = append(b, ',')
	}
	return append(b, '}')
}

// KeyHash hashes the values of cols in r with xxh3. Absent columns hash like
// nil values.
func KeyHash(r Record, cols []string) xxh3.Uint128 {
	var buf []byte
	for _, c := range cols {
		buf = AppendKey(buf, r[c])
		buf = append(buf, 0x1f)
	}
	return xxh3.Hash128(buf)
}

// Fingerprint hashes a whole row set, columns in the given order, rows in
// order.
func Fingerprint(cols []string, rows []Record) uint64 {
	h := xxh3.New()
	var buf []byte
	for _, c := range cols {
		buf = AppendKey(buf[:0], c)
		_, _ = h.Write(buf)
	}
	for _, r := range rows {
		buf = buf[:0]
		for _, c := range cols {
			buf = AppendKey(buf, r[c])
			buf = append(buf, 0x1f)
		}
		buf = append(buf, 0x1e)
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}
