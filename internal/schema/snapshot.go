// Package schema derives column-name to type-tag snapshots from datasets.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"datascout/internal/frame"
)

// Column is one entry of a Snapshot.
type Column struct {
	Name string
	Type string
}

// Snapshot is an ordered column name to type tag mapping. It marshals as a
// JSON object whose keys keep the column order.
type Snapshot []Column

// Type tags.
const (
	TypeNull     = "null"
	TypeBool     = "bool"
	TypeInt      = "int"
	TypeFloat    = "float"
	TypeString   = "string"
	TypeDatetime = "datetime"
	TypeDuration = "timedelta"
	TypeList     = "list"
	TypeDict     = "dict"
)

// platformNames maps Go type names that have a generic tag.
var platformNames = map[string]string{
	"time.Time":          TypeDatetime,
	"time.Duration":      TypeDuration,
	"records.Record":     TypeDict,
	"config.Options":     TypeDict,
	"json.Number":        TypeFloat,
	"bson.ObjectID":      TypeString,
	"primitive.ObjectID": TypeString,
}

// Infer builds a Snapshot from the first row of f. Mixed-type columns are not
// detected: later rows are never inspected.
func Infer(f *frame.Frame) Snapshot {
	if f == nil {
		return Snapshot{}
	}
	out := make(Snapshot, len(f.Columns))
	for i, c := range f.Columns {
		typ := TypeNull
		if len(f.Rows) > 0 {
			typ = TypeOf(f.Rows[0][c])
		}
		out[i] = Column{Name: c, Type: typ}
	}
	return out
}

// TypeOf returns the tag of a single value.
func TypeOf(v any) string {
	switch x := v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt
	case float32, float64:
		return TypeFloat
	case string:
		return TypeString
	case time.Time:
		return TypeDatetime
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return TypeInt
		}
		return TypeFloat
	case []any:
		return TypeList
	case map[string]any:
		return TypeDict
	}
	if name, ok := platformNames[fmt.Sprintf("%T", v)]; ok {
		return name
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return TypeList
	case reflect.Map, reflect.Struct:
		return TypeDict
	}
	return fmt.Sprintf("%T", v)
}

// Names returns the column names in order.
func (s Snapshot) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Lookup returns the type tag of a column.
func (s Snapshot) Lookup(name string) (string, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}

// MarshalJSON emits the snapshot as an object in column order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(c.Type)
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

// UnmarshalJSON restores the column order from the encoded object.
func (s *Snapshot) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("schema: snapshot must be a JSON object")
	}
	var out Snapshot
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		var typ string
		if err := dec.Decode(&typ); err != nil {
			return err
		}
		out = append(out, Column{Name: kt.(string), Type: typ})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}
