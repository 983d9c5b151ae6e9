package xmlsource

import (
	"encoding/xml"
	"errors"
	"io"
	"sort"
	"strings"
)

// pathStats aggregates one element path below the record tag over the fully
// closed records of a document prefix.
type pathStats struct {
	recordsWith  int
	maxPerRecord int
	hasText      bool
}

// guessRecordTag returns the most frequent child element of the document
// root, or "" when the root has no element children.
func guessRecordTag(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	var (
		depth  int
		counts = map[string]int{}
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) || isTruncErr(err) {
				break
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				counts[t.Name.Local]++
			}
		case xml.EndElement:
			depth--
		}
	}
	best, bestN := "", 0
	for _, k := range sortedKeys(counts) {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best, nil
}

// discover inventories the element paths below recordTag and returns a
// starting Config: paths carrying text at most once per record become fields,
// repeated ones become lists. Columns are named after their path.
func discover(r io.Reader, recordTag string) (Config, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	stats := map[string]*pathStats{}
	var (
		inRecord bool
		rel      []string
		texts    [][]byte
		perRec   map[string]int
		withText map[string]bool
	)
	merge := func() {
		for path, n := range perRec {
			st := stats[path]
			if st == nil {
				st = &pathStats{}
				stats[path] = st
			}
			st.recordsWith++
			st.maxPerRecord = max(st.maxPerRecord, n)
			st.hasText = st.hasText || withText[path]
		}
	}

loop:
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) || isTruncErr(err) {
				break loop
			}
			return Config{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !inRecord {
				if t.Name.Local == recordTag {
					inRecord = true
					rel, texts = rel[:0], texts[:0]
					perRec, withText = map[string]int{}, map[string]bool{}
				}
				continue
			}
			rel = append(rel, t.Name.Local)
			texts = append(texts, nil)
		case xml.CharData:
			if inRecord && len(texts) > 0 {
				texts[len(texts)-1] = append(texts[len(texts)-1], t...)
			}
		case xml.EndElement:
			if !inRecord {
				continue
			}
			if len(rel) == 0 {
				merge()
				inRecord = false
				continue
			}
			path := strings.Join(rel, "/")
			perRec[path]++
			if strings.TrimSpace(string(texts[len(texts)-1])) != "" {
				withText[path] = true
			}
			rel, texts = rel[:len(rel)-1], texts[:len(texts)-1]
		}
	}

	cfg := Config{RecordTag: recordTag, Fields: map[string]string{}, Lists: map[string]string{}}
	for path, st := range stats {
		if !st.hasText {
			continue
		}
		if st.maxPerRecord <= 1 {
			cfg.Fields[path] = path
		} else {
			cfg.Lists[path] = path
		}
	}
	return cfg, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
