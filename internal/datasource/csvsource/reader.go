package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"datascout/internal/datasource"
	"datascout/internal/sampling"
	"datascout/pkg/records"
)

const utf8BOM = "\uFEFF"

// probeCap bounds the number of row sizes kept by the counting pass; the
// sampler never measures more.
const probeCap = 250

// Options configures parsing. The zero value reads comma separated UTF-8
// without a header and keeps every cell a string.
type Options struct {
	Comma            rune
	HasHeader        bool
	ParseTypes       bool
	NormalizeHeaders bool
	LazyQuotes       bool
	TrimSpace        bool
	Encoding         string
	// HeaderMap renames source headers before normalization.
	HeaderMap map[string]string
	// Scrub lists byte sequences rewritten before the CSV reader sees them.
	Scrub map[string]string
}

func decoder(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "iso-8859-2", "latin-2", "latin2":
		return charmap.ISO8859_2, nil
	case "windows-1250", "cp1250":
		return charmap.Windows1250, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}

// reader is one pass over a source.
type reader struct {
	rc      io.ReadCloser
	cr      *csv.Reader
	opt     Options
	headers []string
}

func open(ctx context.Context, src datasource.Source, opt Options) (*reader, error) {
	enc, err := decoder(opt.Encoding)
	if err != nil {
		return nil, err
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	var r io.Reader = enc.NewDecoder().Reader(rc)
	if len(opt.Scrub) > 0 {
		r = scrub(r, opt.Scrub)
	}
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = opt.LazyQuotes
	cr.ReuseRecord = true

	rd := &reader{rc: rc, cr: cr, opt: opt}
	if opt.HasHeader {
		h, err := cr.Read()
		switch {
		case errors.Is(err, io.EOF):
		case err != nil:
			rc.Close()
			return nil, fmt.Errorf("read csv header: %w", err)
		default:
			rd.headers = normalizeHeaders(h, opt)
		}
	}
	return rd, nil
}

func (r *reader) Close() error { return r.rc.Close() }

// next returns the next data row; io.EOF ends the stream.
func (r *reader) next() ([]string, error) {
	row, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return row, nil
}

// count reads the remaining rows, returning the number of data rows and the
// byte size of up to probeCap leading ones.
func (r *reader) count(ctx context.Context) (int, []int, error) {
	total := 0
	var sizes []int
	prev := r.cr.InputOffset()
	for {
		if total%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, nil, err
			}
		}
		if _, err := r.next(); err != nil {
			if err == io.EOF {
				break
			}
			return 0, nil, err
		}
		if len(sizes) < probeCap {
			off := r.cr.InputOffset()
			sizes = append(sizes, int(off-prev))
			prev = off
		}
		total++
	}
	return total, sizes[:min(len(sizes), sampling.ProbeRows(total))], nil
}

// rows reads the remaining rows, keeping those sel selects (all of them when
// sel is nil).
func (r *reader) rows(ctx context.Context, sel *sampling.Selector) ([]records.Record, error) {
	var out []records.Record
	for i := 0; ; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if sel != nil && sel.Done() {
			break
		}
		row, err := r.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if sel != nil && !sel.Keep(i) {
			continue
		}
		out = append(out, r.record(row))
	}
	return out, nil
}

func (r *reader) record(row []string) records.Record {
	rec := make(records.Record, max(len(row), len(r.headers)))
	for j, h := range r.headers {
		if j >= len(row) {
			rec[h] = nil
		}
	}
	for j, v := range row {
		rec[keyFor(j, r.headers)] = r.value(v)
	}
	return rec
}

func (r *reader) value(s string) any {
	if r.opt.TrimSpace {
		s = strings.TrimSpace(s)
	}
	return datasource.ParseCell(s, r.opt.ParseTypes)
}

// keyFor returns the header of column idx, or column_<idx> past the header or
// without one.
func keyFor(idx int, headers []string) string {
	if idx < len(headers) {
		return headers[idx]
	}
	return datasource.ColumnName(idx)
}

// normalizeHeaders strips a BOM left by non UTF-8 decoding before the shared
// header rules apply.
func normalizeHeaders(h []string, opt Options) []string {
	if len(h) > 0 {
		h[0] = strings.TrimPrefix(strings.TrimSpace(h[0]), utf8BOM)
	}
	return datasource.NormalizeHeaders(h, opt.HeaderMap, opt.NormalizeHeaders)
}
