// Package csvsource implements the csv and http_csv connectors. Both parse a
// byte Source in a streaming fashion; sampling runs a counting pass first and
// then keeps the selected rows during the parsing pass.
package csvsource

import (
	"context"
	"fmt"
	"io"

	"datascout/internal/config"
	"datascout/internal/datasource"
	"datascout/internal/datasource/file"
	"datascout/internal/datasource/httpds"
	"datascout/internal/sampling"
	"datascout/pkg/records"
)

// sniffBytes is the prefix inspected for delimiter detection.
const sniffBytes = 64 * 1024

var parseFields = []datasource.Field{
	{Key: "delimiter", Name: "Delimiter", Type: "string", Default: ",", Help: `The field delimiter. "auto" detects one of , ; tab or |.`},
	{Key: "has_header", Name: "Has header", Type: "boolean", Default: true, Help: "Does the first row contain the column names?"},
	{Key: "encoding", Name: "Encoding", Type: "option", Default: "utf-8",
		Options: map[string]string{"utf-8": "UTF-8", "latin-1": "Latin-1", "windows-1250": "Windows-1250", "windows-1252": "Windows-1252"}},
	{Key: "parse_types", Name: "Parse types", Type: "boolean", Default: true, Help: "Read integer and decimal cells as numbers."},
	{Key: "normalize_headers", Name: "Normalize headers", Type: "boolean", Default: false, Help: "Lowercase ASCII column names."},
}

func init() {
	datasource.Register("csv", datasource.Descriptor{
		Title: "CSV file",
		Fields: append([]datasource.Field{
			{Key: "filename", Name: "Filename", Type: "file", Required: true, Help: "The CSV file to read."},
		}, parseFields...),
		New: func(p config.Options) (datasource.Connector, error) {
			return fromParams(file.NewLocal(p.String("filename", "")), p)
		},
	})
	datasource.Register("http_csv", datasource.Descriptor{
		Title: "CSV over HTTP",
		Fields: append([]datasource.Field{
			{Key: "url", Name: "URL", Type: "string", Required: true, Help: "The address of the CSV document."},
			{Key: "cache_dir", Name: "Cache directory", Type: "string", Help: "Keep downloads here and reuse them."},
		}, parseFields...),
		New: func(p config.Options) (datasource.Connector, error) {
			src := httpds.NewURLSource(httpds.NewClient(httpds.Defaults), p.String("url", ""), p.String("cache_dir", ""))
			return fromParams(src, p)
		},
	})
}

// Connector reads CSV from a Source.
type Connector struct {
	src   datasource.Source
	opt   Options
	sniff bool
}

// New returns a connector over src. Comma 0 enables delimiter detection.
func New(src datasource.Source, opt Options) *Connector {
	return &Connector{src: src, opt: opt, sniff: opt.Comma == 0}
}

func fromParams(src datasource.Source, p config.Options) (datasource.Connector, error) {
	opt := Options{
		HasHeader:        p.Bool("has_header", true),
		ParseTypes:       p.Bool("parse_types", true),
		NormalizeHeaders: p.Bool("normalize_headers", false),
		LazyQuotes:       p.Bool("lazy_quotes", false),
		TrimSpace:        p.Bool("trim_space", false),
		Encoding:         p.String("encoding", "utf-8"),
		HeaderMap:        p.StringMap("header_map"),
		Scrub:            p.StringMap("scrub"),
	}
	switch d := p.String("delimiter", ","); d {
	case "auto":
	case `\t`, "tab":
		opt.Comma = '\t'
	default:
		r := []rune(d)
		if len(r) != 1 {
			return nil, fmt.Errorf("delimiter must be a single character or \"auto\", got %q", d)
		}
		opt.Comma = r[0]
	}
	if _, err := decoder(opt.Encoding); err != nil {
		return nil, err
	}
	return New(src, opt), nil
}

// Load implements datasource.Connector.
func (c *Connector) Load(ctx context.Context, req datasource.Request) ([]records.Record, error) {
	opt := c.opt
	if c.sniff {
		head, err := c.peek(ctx)
		if err != nil {
			return nil, err
		}
		opt.Comma = Sniff(head)
	}

	var sel *sampling.Selector
	if req.UseSample {
		r, err := open(ctx, c.src, opt)
		if err != nil {
			return nil, err
		}
		total, probe, err := r.count(ctx)
		r.Close()
		if err != nil {
			return nil, err
		}
		sel = datasource.Plan(req, total, probe)
	}

	r, err := open(ctx, c.src, opt)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.rows(ctx, sel)
}

func (c *Connector) peek(ctx context.Context) ([]byte, error) {
	if p, ok := c.src.(interface {
		Peek(context.Context, int) ([]byte, error)
	}); ok {
		return p.Peek(ctx, sniffBytes)
	}
	rc, err := c.src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, sniffBytes))
}
