package xmlsource

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"datascout/internal/datasource"
	"datascout/pkg/records"
)

// parseRecord extracts the configured columns from one <record> element.
// Every configured column is present in the result; unmatched ones are nil.
func parseRecord(b []byte, comp *compiled, parseTypes bool) (records.Record, error) {
	dec := xml.NewDecoder(bytes.NewReader(b))
	dec.Strict = false

	rec := make(records.Record, len(comp.columns))
	for _, col := range comp.columns {
		rec[col] = nil
	}

	type capture struct {
		m     matcher
		depth int
		text  []byte
	}
	var (
		inRecord bool
		rel      []string
		caps     []capture
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) || isTruncErr(err) {
				return rec, nil
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !inRecord {
				inRecord = t.Name.Local == comp.recordTag
				continue
			}
			rel = append(rel, t.Name.Local)
			for _, m := range comp.byLast[t.Name.Local] {
				if !tailMatches(rel, m.spec) || !hasAttr(t.Attr, m.spec.last()) {
					continue
				}
				caps = append(caps, capture{m: m, depth: len(rel)})
			}
		case xml.CharData:
			for i := range caps {
				caps[i].text = append(caps[i].text, t...)
			}
		case xml.EndElement:
			if !inRecord {
				continue
			}
			if len(rel) == 0 {
				return rec, nil
			}
			w := 0
			for _, cp := range caps {
				if cp.depth != len(rel) {
					caps[w] = cp
					w++
					continue
				}
				val := strings.TrimSpace(string(cp.text))
				if val == "" {
					continue
				}
				if cp.m.list {
					arr, _ := rec[cp.m.column].([]any)
					rec[cp.m.column] = append(arr, datasource.ParseCell(val, parseTypes))
				} else if rec[cp.m.column] == nil {
					rec[cp.m.column] = datasource.ParseCell(val, parseTypes)
				}
			}
			caps = caps[:w]
			rel = rel[:len(rel)-1]
		}
	}
}

func hasAttr(attrs []xml.Attr, s seg) bool {
	if s.attrName == "" {
		return true
	}
	for _, a := range attrs {
		if a.Name.Local == s.attrName && a.Value == s.attrVal {
			return true
		}
	}
	return false
}

// isTruncErr reports the errors encoding/xml returns for a cut-off stream.
// The package exposes no sentinel, so the message is matched.
func isTruncErr(err error) bool {
	s := err.Error()
	return strings.Contains(s, "unexpected EOF") || strings.Contains(s, "XML syntax error")
}
