package records

import (
	"reflect"
	"testing"
)

// TestColumns verifies first-seen ordering across heterogeneous rows.
func TestColumns(t *testing.T) {
	t.Parallel()

	rows := []Record{
		{"b": 1, "a": 2},
		{"c": 3, "a": 4},
	}
	got := Columns(rows)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Columns() = %v, want %v", got, want)
	}
}

// TestColumnsInOrder keeps hint order, drops vanished columns and appends new ones.
func TestColumnsInOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hint []string
		rows []Record
		want []string
	}{
		{"no_rows_returns_hint", []string{"x", "y"}, nil, []string{"x", "y"}},
		{"keeps_hint_order", []string{"z", "a"}, []Record{{"a": 1, "z": 2}}, []string{"z", "a"}},
		{"appends_new", []string{"a"}, []Record{{"a": 1, "c": 2, "b": 3}}, []string{"a", "b", "c"}},
		{"drops_vanished", []string{"a", "gone"}, []Record{{"a": 1}}, []string{"a"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ColumnsInOrder(tt.hint, tt.rows); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ColumnsInOrder() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestClone ensures the copy is independent at the top level.
func TestClone(t *testing.T) {
	t.Parallel()

	r := Record{"a": 1}
	c := r.Clone()
	c["a"] = 2
	if r["a"] != 1 {
		t.Fatalf("Clone() shares storage with the original")
	}
	if Record(nil).Clone() != nil {
		t.Fatalf("Clone(nil) should stay nil")
	}
}
