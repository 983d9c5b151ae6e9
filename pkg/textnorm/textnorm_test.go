package textnorm

import "testing"

func TestStripAccents(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Crème Brûlée":  "Creme Brulee",
		"Žluťoučký kůň": "Zlutoucky kun",
		"plain":         "plain",
		"":              "",
	}
	for in, want := range cases {
		if got := StripAccents(in); got != want {
			t.Fatalf("StripAccents(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFieldName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  Datum Od ":  "datum_od",
		"Kód-Značky.x": "kod_znacky_x",
		"a  -- b":      "a_b",
		"%%%":          "col",
		"_leading_":    "leading",
		"Price (€)":    "price",
	}
	for in, want := range cases {
		if got := FieldName(in); got != want {
			t.Fatalf("FieldName(%q) = %q, want %q", in, got, want)
		}
	}
}
