// Package records holds the row type passed between connectors,
// transformations, the engine and storage sinks.
package records

// Record is one row: column name to value. Values are nil, bool, int64,
// float64, string, time.Time, []any or map[string]any.
type Record map[string]any

// Clone returns a shallow copy of r. Nested lists and maps are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the column is present, including explicit nulls.
func (r Record) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// Columns returns the union of keys across rows in first-seen order. Keys of a
// single row are visited in sorted order so the result is deterministic.
func Columns(rows []Record) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, r := range rows {
		for _, k := range sortedKeys(r) {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	return cols
}
