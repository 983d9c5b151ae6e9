package transformer

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

// TestCoerceLike covers scalar, list and example-type edge cases.
func TestCoerceLike(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     any
		example any
		want    any
		wantErr bool
	}{
		{"int_example", "5", int64(3), int64(5), false},
		{"float_example", "5", 2.5, 5.0, false},
		{"bool_example", "true", false, true, false},
		{"bool_zero_is_false", "0", true, false, false},
		{"string_example", "5", "x", "5", false},
		{"nil_example", "5", nil, "5", false},
		{"list_example_uses_first", "7", []any{int64(1), "x"}, int64(7), false},
		{"empty_list_example", "7", []any{}, "7", false},
		{"multi_value", []any{"1", "2"}, int64(0), []any{int64(1), int64(2)}, false},
		{"single_element_list", []string{"9"}, 1.0, 9.0, false},
		{"empty_list_operand", []any{}, int64(0), []any{}, false},
		{"bad_int", "x", int64(1), nil, true},
		{"bad_float", "x", 1.0, nil, true},
		{"bad_bool", "maybe", true, nil, true},
		{"number_operand", 5.0, int64(1), int64(5), false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CoerceLike(tt.raw, tt.example)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("CoerceLike(%v, %v) = %#v, want %#v", tt.raw, tt.example, got, tt.want)
			}
		})
	}
}

// TestCompare covers cross-type numeric ordering and incomparable values.
func TestCompare(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b any
		want int
	}{
		{int64(1), 2.5, -1},
		{3.0, int64(3), 0},
		{"b", "a", 1},
		{false, true, -1},
		{nil, int64(1), -1},
		{nil, nil, 0},
		{time.Unix(2, 0), time.Unix(1, 0), 1},
	}
	for _, c := range cases {
		got, err := Compare(c.a, c.b)
		if err != nil || got != c.want {
			t.Fatalf("Compare(%v, %v) = %d, %v; want %d", c.a, c.b, got, err, c.want)
		}
	}
	if _, err := Compare("a", int64(1)); !errors.Is(err, ErrIncomparable) {
		t.Fatalf("Compare(string, int) err = %v", err)
	}
}

// TestEqualAndConversions checks value helpers.
func TestEqualAndConversions(t *testing.T) {
	t.Parallel()

	if !Equal(int64(2), 2.0) || Equal("2", int64(2)) {
		t.Fatalf("Equal numeric semantics broken")
	}
	if !Equal([]any{int64(1), "a"}, []any{1.0, "a"}) {
		t.Fatalf("Equal on lists broken")
	}
	if n, ok := Number("12"); !ok || n != int64(12) {
		t.Fatalf("Number(12) = %v, %v", n, ok)
	}
	if n, ok := Number("1.5"); !ok || n != 1.5 {
		t.Fatalf("Number(1.5) = %v, %v", n, ok)
	}
	if _, ok := Number(true); ok {
		t.Fatalf("Number(bool) should fail")
	}
	if _, ok := ToInt(1.5); ok {
		t.Fatalf("ToInt(1.5) should fail")
	}
	if !IsMissing(math.NaN()) || !IsMissing("") || IsMissing(0) {
		t.Fatalf("IsMissing broken")
	}
	if Stringify(2.50) != "2.5" || Stringify(int64(3)) != "3" || Stringify(nil) != "" {
		t.Fatalf("Stringify broken")
	}
}
