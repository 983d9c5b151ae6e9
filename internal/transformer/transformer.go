// Package transformer defines the transformation catalog and the dispatch
// primitives the engine drives transformations with.
//
// A transformation is registered as a Descriptor: metadata (title template,
// parameter schema, behavioural flags, allowed sampling techniques) plus a
// Factory. The factory builds an instance for one pipeline execution from the
// step parameters, the current sample size and an example row. Depending on
// its flags an instance implements exactly one of Row, Flattener or Global.
package transformer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"datascout/internal/config"
	"datascout/internal/frame"
	"datascout/internal/sampling"
	"datascout/pkg/records"
)

var (
	// ErrNotFound is returned when a key is not in the catalog.
	ErrNotFound = errors.New("transformation not found")
	// ErrMissingParameter is returned when a required parameter is absent.
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrFilterInput marks a row a filter could not evaluate. The row is kept
	// and the step reports a warning instead of failing.
	ErrFilterInput = errors.New("filter input not usable")
)

// Flags select how the engine dispatches an instance.
type Flags struct {
	Filter  bool `json:"is_filter"`
	Global  bool `json:"is_global"`
	Flatten bool `json:"is_flatten"`
}

// Row is implemented by row-wise transformations. Filters return a nil record
// to reject the row.
type Row interface {
	ApplyRow(rec records.Record, index int) (records.Record, error)
}

// Flattener is implemented by transformations that turn one row into zero or
// more rows.
type Flattener interface {
	Flatten(rec records.Record, index int) ([]records.Record, error)
}

// Global is implemented by transformations that need the whole dataset.
type Global interface {
	ApplyGlobal(f *frame.Frame) (*frame.Frame, error)
}

// Factory builds an instance for one execution.
type Factory func(args config.Options, sampleSize int, example records.Record) (any, error)

// Field describes one parameter of a transformation.
type Field struct {
	Key      string            `json:"-"`
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Help     string            `json:"help,omitempty"`
	Input    string            `json:"input,omitempty"`
	Required bool              `json:"required"`
	Multiple bool              `json:"multiple,omitempty"`
	Default  any               `json:"default"`
	Options  map[string]string `json:"options,omitempty"`
	// SubFields describes the entries of a list-of-objects parameter.
	SubFields Fields `json:"sub_fields,omitempty"`
}

// Fields is an ordered parameter schema. It marshals as an object keyed by
// Field.Key in declaration order.
type Fields []Field

// MarshalJSON implements json.Marshaler.
func (fs Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Descriptor is a catalog entry.
type Descriptor struct {
	Key    string
	Title  string
	Fields Fields
	Flags  Flags
	// Sampling lists the techniques the transformation works correctly with.
	// Nil allows every technique.
	Sampling []sampling.Technique
	New      Factory
}

func (d *Descriptor) validate() error {
	if d.Key == "" {
		return fmt.Errorf("descriptor has an empty key")
	}
	if d.New == nil {
		return fmt.Errorf("descriptor %q has no factory", d.Key)
	}
	n := 0
	for _, f := range []bool{d.Flags.Filter, d.Flags.Global, d.Flags.Flatten} {
		if f {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("descriptor %q combines dispatch flags %+v", d.Key, d.Flags)
	}
	for _, t := range d.Sampling {
		if !t.Valid() {
			return fmt.Errorf("descriptor %q allows unknown sampling technique %q", d.Key, t)
		}
	}
	return nil
}

// Construct checks required parameters, calls the factory and verifies the
// instance implements the interface its flags demand.
func (d *Descriptor) Construct(args config.Options, sampleSize int, example records.Record) (any, error) {
	if args == nil {
		args = config.Options{}
	}
	if err := d.CheckArgs(args); err != nil {
		return nil, err
	}
	inst, err := d.New(args, sampleSize, example)
	if err != nil {
		return nil, err
	}
	switch {
	case d.Flags.Global:
		if _, ok := inst.(Global); !ok {
			return nil, fmt.Errorf("%s: global transformation %T does not implement Global", d.Key, inst)
		}
	case d.Flags.Flatten:
		if _, ok := inst.(Flattener); !ok {
			return nil, fmt.Errorf("%s: flatten transformation %T does not implement Flattener", d.Key, inst)
		}
	default:
		if _, ok := inst.(Row); !ok {
			return nil, fmt.Errorf("%s: row transformation %T does not implement Row", d.Key, inst)
		}
	}
	return inst, nil
}

// CheckArgs reports the first required parameter missing from args.
func (d *Descriptor) CheckArgs(args config.Options) error {
	for _, f := range d.Fields {
		if f.Required && !args.Has(f.Key) {
			return fmt.Errorf("%w %q", ErrMissingParameter, f.Key)
		}
	}
	return nil
}

// Mode names the dispatch rule of a descriptor.
func (d *Descriptor) Mode() string {
	switch {
	case d.Flags.Global:
		return "global"
	case d.Flags.Flatten:
		return "flatten"
	case d.Flags.Filter:
		return "filter"
	}
	return "row"
}
