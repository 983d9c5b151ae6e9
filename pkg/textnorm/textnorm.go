// Package textnorm holds the accent folding and identifier normalisation
// shared by connectors and text transformations.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents removes combining marks: "Crème Brûlée" becomes "Creme Brulee".
// A fresh transformer is built per call because transform chains carry state.
func StripAccents(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// FieldName converts arbitrary header text into a lowercase ASCII identifier:
//  1. lowercase
//  2. strip accents
//  3. keep [a-z0-9_]; convert space/dash/dot to underscore; drop others
//  4. fall back to "col" if empty
func FieldName(s string) string {
	ascii := StripAccents(strings.ToLower(strings.TrimSpace(s)))

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "col"
	}
	return out
}
