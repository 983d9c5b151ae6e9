package schema

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"datascout/internal/frame"
	"datascout/pkg/records"
)

// TestInfer_FirstRowDriven documents that only the first row decides types.
func TestInfer_FirstRowDriven(t *testing.T) {
	t.Parallel()

	rows := []records.Record{
		{"i": int64(1), "f": 1.5, "s": "x", "t": time.Unix(0, 0), "l": []any{1}, "d": map[string]any{}, "b": true},
		{"i": "not an int any more", "n": 3},
	}
	f := frame.Materialize([]string{"i", "f", "s", "t", "l", "d", "b", "n"}, rows)
	got := Infer(f)
	want := Snapshot{
		{"i", "int"}, {"f", "float"}, {"s", "string"}, {"t", "datetime"},
		{"l", "list"}, {"d", "dict"}, {"b", "bool"}, {"n", "null"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Infer() = %v, want %v", got, want)
	}
}

// TestInfer_Empty keeps hint columns with the null tag.
func TestInfer_Empty(t *testing.T) {
	t.Parallel()

	got := Infer(frame.Materialize([]string{"a"}, nil))
	if !reflect.DeepEqual(got, Snapshot{{"a", "null"}}) {
		t.Fatalf("Infer(empty) = %v", got)
	}
}

// TestTypeOf_PlatformTypes checks the mapping table for non-core types.
func TestTypeOf_PlatformTypes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want string
	}{
		{time.Second, "timedelta"},
		{records.Record{}, "dict"},
		{json.Number("12"), "int"},
		{json.Number("1.2"), "float"},
		{math.NaN(), "float"},
		{[]string{"a"}, "list"},
		{uint8(1), "int"},
	}
	for _, c := range cases {
		if got := TypeOf(c.in); got != c.want {
			t.Fatalf("TypeOf(%#v) = %q, want %q", c.in, got, c.want)
		}
	}
}

// TestSnapshot_JSONKeepsOrder verifies ordered encoding and decoding.
func TestSnapshot_JSONKeepsOrder(t *testing.T) {
	t.Parallel()

	s := Snapshot{{"z", "int"}, {"a", "string"}}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"z":"int","a":"string"}` {
		t.Fatalf("Marshal = %s", b)
	}
	var back Snapshot
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, s) {
		t.Fatalf("Unmarshal = %v", back)
	}
	if typ, ok := s.Lookup("a"); !ok || typ != "string" {
		t.Fatalf("Lookup(a) = %q, %v", typ, ok)
	}
}
