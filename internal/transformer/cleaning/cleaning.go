// Package cleaning is an installable extension with record-cleaning
// transformations: whitespace normalization, type coercion, required-field
// filtering and contract validation.
//
// Importing the package makes the extension available; it is merged into a
// catalog with Catalog.Load("cleaning").
package cleaning

import (
	"datascout/internal/config"
	"datascout/internal/transformer"
)

const (
	Name    = "cleaning"
	Version = "1.0.0"
)

// Extension returns the extension definition.
func Extension() transformer.Extension {
	return transformer.Extension{
		Name:       Name,
		Version:    Version,
		ImportPath: "datascout/internal/transformer/cleaning",
		Transformations: []transformer.Descriptor{
			normalizeDescriptor,
			coerceDescriptor,
			requireDescriptor,
			validateDescriptor,
		},
	}
}

func init() {
	transformer.RegisterExtension(Extension())
}

func columnsField(help string, required bool) transformer.Field {
	return transformer.Field{
		Key: "fields", Name: "Columns", Type: "list<string>", Input: "column",
		Multiple: true, Required: required, Default: "", Help: help,
	}
}

// object converts an element of a list-of-objects parameter.
func object(v any) (config.Options, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case config.Options:
		return m, true
	}
	return nil, false
}

// hasEdgeSpace reports leading or trailing ASCII whitespace.
func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	switch s[len(s)-1] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
