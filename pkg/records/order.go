package records

import "sort"

// ColumnsInOrder returns the columns of hint that still occur in rows, in hint
// order, followed by columns that are new in rows. With no rows, hint is
// returned unchanged.
func ColumnsInOrder(hint []string, rows []Record) []string {
	if len(rows) == 0 {
		return append([]string(nil), hint...)
	}
	present := Columns(rows)
	inRows := make(map[string]struct{}, len(present))
	for _, c := range present {
		inRows[c] = struct{}{}
	}
	out := make([]string, 0, len(present))
	seen := make(map[string]struct{}, len(present))
	for _, c := range hint {
		if _, ok := inRows[c]; !ok {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for _, c := range present {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
