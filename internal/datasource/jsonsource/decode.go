package jsonsource

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"datascout/pkg/records"
)

// reader yields the records of one JSON document. Accepted shapes:
//
//   - a root array of objects: [ {...}, {...} ]
//   - an envelope object holding the records in an array-of-object field:
//     { "records": [...], "meta": {...} }
//   - newline-delimited objects (NDJSON); a lone object is one record
//
// Array elements are decoded one at a time so large arrays stream.
type reader struct {
	dec       *json.Decoder
	path      string
	headerMap map[string]string

	started bool
	inArray bool
	pending []map[string]any
	n       int
}

func newReader(r io.Reader, path string, headerMap map[string]string) *reader {
	dec := json.NewDecoder(bufio.NewReaderSize(r, 64<<10))
	dec.UseNumber()
	return &reader{dec: dec, path: path, headerMap: headerMap}
}

// next returns the next record; ok is false at the end of the document.
func (r *reader) next() (records.Record, bool, error) {
	if !r.started {
		r.started = true
		if err := r.start(); err != nil {
			return nil, false, err
		}
	}
	for {
		if len(r.pending) > 0 {
			obj := r.pending[0]
			r.pending = r.pending[1:]
			return r.emit(obj), true, nil
		}
		if r.inArray {
			if r.dec.More() {
				var elem any
				if err := r.dec.Decode(&elem); err != nil {
					return nil, false, fmt.Errorf("json: decode element %d: %w", r.n+1, err)
				}
				obj, ok := elem.(map[string]any)
				if !ok {
					return nil, false, fmt.Errorf("json: array element %d is not an object (got %T)", r.n+1, elem)
				}
				return r.emit(obj), true, nil
			}
			if _, err := r.dec.Token(); err != nil {
				return nil, false, fmt.Errorf("json: close array: %w", err)
			}
			r.inArray = false
		}

		// Trailing top-level values are NDJSON records.
		var v any
		if err := r.dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("json: decode value after record %d: %w", r.n, err)
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, false, fmt.Errorf("json: top-level value after record %d is not an object (got %T)", r.n, v)
		}
		return r.emit(obj), true, nil
	}
}

func (r *reader) start() error {
	tok, err := r.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.pending = nil
			return nil
		}
		return fmt.Errorf("json: decode root: %w", err)
	}
	switch tok {
	case json.Delim('['):
		r.inArray = true
		return nil
	case json.Delim('{'):
		root, err := r.restOfObject()
		if err != nil {
			return err
		}
		if slice, err := envelope(root, r.path); err != nil {
			return err
		} else if slice != nil {
			r.pending = slice
		} else {
			r.pending = []map[string]any{root}
		}
		return nil
	}
	return fmt.Errorf("json: unsupported root %v (want object or array)", tok)
}

// restOfObject decodes the members of an object whose opening brace was
// already consumed.
func (r *reader) restOfObject() (map[string]any, error) {
	obj := map[string]any{}
	for r.dec.More() {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, fmt.Errorf("json: decode root key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("json: unexpected token %v in root object", tok)
		}
		var v any
		if err := r.dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("json: decode root.%s: %w", key, err)
		}
		obj[key] = v
	}
	if _, err := r.dec.Token(); err != nil {
		return nil, fmt.Errorf("json: close root object: %w", err)
	}
	return obj, nil
}

func (r *reader) emit(obj map[string]any) records.Record {
	r.n++
	rec := make(records.Record, len(obj))
	for k, v := range obj {
		if mapped, ok := r.headerMap[k]; ok && mapped != "" {
			k = mapped
		}
		rec[k] = normalize(v)
	}
	return rec
}

// envelope returns the array-of-object field holding the records of root. An
// explicit path must name such a field; otherwise the first one in key order
// is used and nil means root is itself a record.
func envelope(root map[string]any, path string) ([]map[string]any, error) {
	if path != "" {
		v, ok := root[path]
		if !ok {
			return nil, fmt.Errorf("json: records_path %q not found in root object", path)
		}
		objs, ok := objectSlice(v)
		if !ok {
			return nil, fmt.Errorf("json: records_path %q is not an array of objects", path)
		}
		return objs, nil
	}
	keys := make([]string, 0, len(root))
	for k := range root {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if objs, ok := objectSlice(root[k]); ok && len(objs) > 0 {
			return objs, nil
		}
	}
	return nil, nil
}

func objectSlice(v any) ([]map[string]any, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(raw))
	for _, elem := range raw {
		if elem == nil {
			continue
		}
		m, ok := elem.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}

// normalize turns json.Number into int64 or float64, recursively.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	}
	return v
}
