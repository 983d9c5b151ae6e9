// Package sampling implements the byte-budget sample sizing shared by all
// connectors, the three row selection techniques, and the reconciliation of a
// requested technique with the constraints of a pipeline's steps.
package sampling

import "fmt"

// Technique selects which rows of a source make up a sample.
type Technique string

const (
	Top        Technique = "top"
	Random     Technique = "random"
	Stratified Technique = "stratified"
)

// All is the canonical ordering used whenever a substitute must be chosen.
var All = []Technique{Top, Random, Stratified}

// Parse validates s. The empty string selects Top.
func Parse(s string) (Technique, error) {
	switch Technique(s) {
	case "":
		return Top, nil
	case Top, Random, Stratified:
		return Technique(s), nil
	}
	return "", fmt.Errorf("unknown sampling technique %q", s)
}

// Valid reports whether t is one of the canonical techniques.
func (t Technique) Valid() bool {
	_, err := Parse(string(t))
	return err == nil && t != ""
}

// OrDefault returns Top for the empty technique.
func (t Technique) OrDefault() Technique {
	if t == "" {
		return Top
	}
	return t
}
