package cleaning

import (
	"context"
	"reflect"
	"testing"
	"time"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

func deepCopy(in []records.Record) []records.Record {
	out := make([]records.Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

func applyAll(t *testing.T, row transformer.Row, in []records.Record, filter bool) []records.Record {
	t.Helper()
	res, err := transformer.ApplyRows(context.Background(), row, in, transformer.RowOptions{Filter: filter})
	if err != nil {
		t.Fatalf("ApplyRows: %v", err)
	}
	return transformer.DropRejected(res.Rows)
}

/*
TestExtension_Load verifies the extension merges into a fresh catalog once and
that a second load of the same version is a no-op.
*/
func TestExtension_Load(t *testing.T) {
	t.Parallel()

	c := transformer.NewCatalog()
	if err := c.Load(Name); err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, k := range []string{"clean-normalize", "clean-coerce", "clean-require", "clean-validate"} {
		if _, err := c.Resolve(k); err != nil {
			t.Fatalf("Resolve(%q): %v", k, err)
		}
	}
	if err := c.Load(Name); err != nil {
		t.Fatalf("second Load: %v", err)
	}
}

/*
TestNormalizeApplyRow_TableDriven verifies the core normalization semantics:

  - Replaces U+00A0 NO-BREAK SPACE (NBSP) with ASCII space.
  - Trims leading/trailing ASCII whitespace.
  - Leaves non-string values unchanged.
  - Restricts itself to Fields when they are given.
*/
func TestNormalizeApplyRow_TableDriven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		fields []string
		in     records.Record
		want   records.Record
	}{
		{
			name: "no_strings_no_change",
			in:   records.Record{"a": 1, "b": true, "c": nil},
			want: records.Record{"a": 1, "b": true, "c": nil},
		},
		{
			name: "simple_trim_spaces",
			in:   records.Record{"a": " foo ", "b": "\tbar\n"},
			want: records.Record{"a": "foo", "b": "bar"},
		},
		{
			name: "nbsp_replaced_and_trimmed",
			in:   records.Record{"a": " " + nbsp + "foo" + nbsp + " "},
			want: records.Record{"a": "foo"},
		},
		{
			name: "nbsp_internal_only",
			in:   records.Record{"a": "foo" + nbsp + "bar"},
			want: records.Record{"a": "foo bar"},
		},
		{
			name:   "selected_fields_only",
			fields: []string{"a"},
			in:     records.Record{"a": " x ", "b": " y "},
			want:   records.Record{"a": "x", "b": " y "},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			before := reflect.ValueOf(tc.in).Pointer()
			got, err := Normalize{Fields: tc.fields}.ApplyRow(tc.in, 0)
			if err != nil {
				t.Fatalf("ApplyRow: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %#v, want %#v", got, tc.want)
			}
			if reflect.ValueOf(got).Pointer() != before {
				t.Fatalf("record map identity changed; want in-place mutation")
			}
		})
	}
}

/*
TestHasEdgeSpace verifies that hasEdgeSpace detects leading/trailing ASCII
whitespace and ignores interior-only whitespace.
*/
func TestHasEdgeSpace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"foo", false},
		{" foo", true},
		{"foo ", true},
		{"f oo", false},
		{"\tfoo", true},
		{"foo\n", true},
		{"\rfoo", true},
		{"f\too", false},
	}
	for _, tc := range tests {
		if got := hasEdgeSpace(tc.in); got != tc.want {
			t.Fatalf("hasEdgeSpace(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

/*
TestCoerceApplyRow_Basics verifies that Coerce converts string values to
int64, float64, bool and time.Time, and leaves "string" targets alone.
*/
func TestCoerceApplyRow_Basics(t *testing.T) {
	t.Parallel()

	layout := "2006-01-02"
	c := Coerce{
		Types:  map[string]string{"i": "int", "f": "float", "b": "bool", "d": "date", "s": "string"},
		Layout: layout,
	}
	r, _ := c.ApplyRow(records.Record{"i": " 42", "f": "1.5", "b": "true", "d": "2025-11-09", "s": "hello"}, 0)

	if v, ok := r["i"].(int64); !ok || v != 42 {
		t.Fatalf(`"i" got %#v (type %T); want int64(42)`, r["i"], r["i"])
	}
	if v, ok := r["f"].(float64); !ok || v != 1.5 {
		t.Fatalf(`"f" got %#v; want 1.5`, r["f"])
	}
	if v, ok := r["b"].(bool); !ok || !v {
		t.Fatalf(`"b" got %#v; want true`, r["b"])
	}
	if v, ok := r["d"].(time.Time); !ok || v.Format(layout) != "2025-11-09" {
		t.Fatalf(`"d" got %#v; want 2025-11-09`, r["d"])
	}
	if r["s"] != "hello" {
		t.Fatalf(`"s" got %#v; want "hello"`, r["s"])
	}
}

/*
TestCoerceApplyRow_InvalidsPreserve verifies that failed parses, missing
fields, nil values and non-string values are left unchanged.
*/
func TestCoerceApplyRow_InvalidsPreserve(t *testing.T) {
	t.Parallel()

	c := Coerce{Types: map[string]string{"i": "int", "b": "bool", "d": "date", "a": "int"}, Layout: "2006-01-02"}
	tm := time.Date(2025, 11, 9, 0, 0, 0, 0, time.UTC)
	in := []records.Record{
		{"i": "not-an-int", "b": "nope", "d": "11/09/2025"},
		{"b": nil, "d": tm, "x": 123},
	}
	orig := deepCopy(in)
	out := applyAll(t, c, in, false)
	if !reflect.DeepEqual(out, orig) {
		t.Fatalf("values should remain unchanged:\n got: %#v\nwant: %#v", out, orig)
	}
}

func TestCoerceDescriptor_UnknownType(t *testing.T) {
	t.Parallel()

	_, err := coerceDescriptor.Construct(config.Options{"types": map[string]any{"i": "Int"}}, 0, nil)
	if err == nil {
		t.Fatalf("unknown type should fail construction")
	}
}

// TestRequire_Filter drops rows lacking a value in any listed field.
func TestRequire_Filter(t *testing.T) {
	t.Parallel()

	in := []records.Record{
		{"a": "x", "b": 1},
		{"a": "", "b": 1},
		{"a": "y"},
		{"a": "z", "b": nil},
		{"a": "w", "b": 0},
	}
	out := applyAll(t, Require{Fields: []string{"a", "b"}}, in, true)
	want := []records.Record{{"a": "x", "b": 1}, {"a": "w", "b": 0}}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("got %#v, want %#v", out, want)
	}
}

func contract() []Rule {
	return []Rule{
		{Name: "id", Type: "int", Required: true},
		{Name: "flag", Type: "bool"},
		{Name: "d1", Type: "date", Layout: "02.01.2006"},
		{Name: "d2", Type: "date"},
		{Name: "status", Type: "string", Enum: []string{"new", "ok", "done"}},
		{Name: "note", Type: "text"},
	}
}

/*
TestValidate_Drop verifies end-to-end validation under the drop policy:
required fields, int/bool/date checks, enums, and that non-required empty
values pass. Survivors keep their order.
*/
func TestValidate_Drop(t *testing.T) {
	t.Parallel()

	v := NewValidate(contract(), "2006/01/02", "drop", "")
	in := []records.Record{
		// 0: valid (YES truthy via defaults, date via field layout, ISO date)
		{"id": "7", "flag": "YES", "d1": "09.11.2025", "d2": "2025-11-09", "status": "ok", "note": "free"},
		// 1: valid (d2 via global fallback)
		{"id": int64(8), "flag": true, "d1": "", "d2": "2025/11/09", "status": "new"},
		// 2: required id missing
		{"flag": "NO", "status": "ok"},
		// 3: id not an int
		{"id": "x3", "flag": "NO", "status": "ok"},
		// 4: flag unrecognized
		{"id": "3", "flag": "MAYBE", "status": "ok"},
		// 5: enum mismatch
		{"id": "9", "flag": "no", "status": "bad"},
		// 6: non-required empty strings pass
		{"id": "10", "flag": "", "d1": "", "d2": "", "status": "done"},
		// 7: fractional float is not an int
		{"id": 1.5},
	}
	orig := deepCopy(in)
	out := applyAll(t, v, in, true)
	want := []records.Record{orig[0], orig[1], orig[6]}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("survivors = %#v", out)
	}
}

// TestValidate_Flag keeps every row and records the reason of invalid ones.
func TestValidate_Flag(t *testing.T) {
	t.Parallel()

	inst, err := validateDescriptor.Construct(config.Options{
		"contract": []any{
			map[string]any{"name": "id", "type": "integer", "required": true},
			map[string]any{"name": "ok", "type": "boolean", "truthy": []any{"ja"}, "falsy": []any{"nein"}},
		},
		"policy": "flag",
	}, 0, nil)
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	in := []records.Record{{"id": "1", "ok": "JA"}, {"ok": "nein"}, {"id": "2", "ok": "yes"}}
	out := applyAll(t, inst.(transformer.Row), in, true)
	if len(out) != 3 {
		t.Fatalf("flag policy must keep rows, got %d", len(out))
	}
	if out[0]["_invalid"] != nil {
		t.Fatalf("row 0 should be valid: %v", out[0]["_invalid"])
	}
	if out[1]["_invalid"] != `required field "id" missing` {
		t.Fatalf("row 1 reason = %v", out[1]["_invalid"])
	}
	if out[2]["_invalid"] == nil {
		t.Fatalf("custom boolean sets replace the defaults; row 2 should be invalid")
	}
}

func TestNormalizeKind(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"bigint": "int", "INT8": "int", "boolean": "bool", "timestamptz": "date", "text": "string", "weird": "string",
	}
	for in, want := range cases {
		if got := normalizeKind(in); got != want {
			t.Fatalf("normalizeKind(%q) = %q, want %q", in, got, want)
		}
	}
}
