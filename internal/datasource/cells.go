package datasource

import (
	"regexp"
	"strconv"
	"strings"

	"datascout/pkg/textnorm"
)

var numberRE = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ColumnName names the unnamed column at 0-based position i.
func ColumnName(i int) string { return "column_" + strconv.Itoa(i) }

// NormalizeHeaders turns raw header cells into record keys. rename is applied
// to the trimmed cell first; otherwise ident converts it with
// textnorm.FieldName. Blank headers become ColumnName(i) and duplicates get a
// _2, _3 suffix.
func NormalizeHeaders(raw []string, rename map[string]string, ident bool) []string {
	res := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, col := range raw {
		c := strings.TrimSpace(col)
		if m, ok := rename[c]; ok {
			c = m
		} else if ident && c != "" {
			c = textnorm.FieldName(c)
		}
		if c == "" {
			c = ColumnName(i)
		}
		seen[c]++
		if n := seen[c]; n > 1 {
			c += "_" + strconv.Itoa(n)
		}
		res[i] = c
	}
	return res
}

// ParseCell converts a textual cell. Empty cells are nil; with parseTypes,
// integers become int64 and decimals float64. Words such as "NaN" or "inf"
// stay strings.
func ParseCell(s string, parseTypes bool) any {
	if s == "" {
		return nil
	}
	if !parseTypes || !numberRE.MatchString(s) {
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
