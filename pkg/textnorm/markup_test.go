package textnorm

import (
	"reflect"
	"strings"
	"testing"
)

func TestStripMarkup(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"<p>Hello <b>world</b></p>": "Hello world",
		"a < b":                     "a ",
		"no tags":                   "no tags",
		"":                          "",
	}
	for in, want := range cases {
		if got := StripMarkup(in); got != want {
			t.Fatalf("StripMarkup(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCollapseSpace(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  a \t\n b  ": "a b",
		"a\r\n\r\nb":   "a b",
		"   ":          "",
		"x":            "x",
	}
	for in, want := range cases {
		if got := CollapseSpace(in); got != want {
			t.Fatalf("CollapseSpace(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIntegers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []int64
		ok   bool
	}{
		{"order 12, line 3", []int64{12, 3}, true},
		{"007x", []int64{7}, true},
		{"none", nil, true},
		{"٣ arabic-indic digits are not ASCII", nil, true},
		{"big " + strings.Repeat("9", 20), nil, false},
	}
	for _, tc := range tests {
		got, ok := Integers(tc.in)
		if ok != tc.ok || !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Integers(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestBetween(t *testing.T) {
	t.Parallel()

	tests := []struct {
		s, start, end string
		want          string
		ok            bool
	}{
		{"id=[42];", "[", "]", "42", true},
		{"key: value", ": ", "", "value", true},
		{"prefix-rest", "", "-", "prefix", true},
		{"abc", "x", "", "", false},
		{"abc", "a", "z", "", false},
		{"[]", "[", "]", "", false},
	}
	for _, tc := range tests {
		got, ok := Between(tc.s, tc.start, tc.end)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Between(%q, %q, %q) = %q, %v", tc.s, tc.start, tc.end, got, ok)
		}
	}
}
