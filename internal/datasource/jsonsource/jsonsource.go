// Package jsonsource implements the json and http_json connectors over JSON
// arrays, envelope objects and NDJSON streams.
package jsonsource

import (
	"context"

	"datascout/internal/config"
	"datascout/internal/datasource"
	"datascout/internal/datasource/file"
	"datascout/internal/datasource/httpds"
	"datascout/pkg/records"
)

var shapeFields = []datasource.Field{
	{Key: "records_path", Name: "Records field", Type: "string",
		Help: "Field of the root object holding the records; the first array of objects when empty."},
	{Key: "header_map", Name: "Rename keys", Type: "string", Help: "Object mapping source keys to column names."},
}

func init() {
	datasource.Register("json", datasource.Descriptor{
		Title: "JSON file",
		Fields: append([]datasource.Field{
			{Key: "filename", Name: "Filename", Type: "file", Required: true, Help: "The JSON or NDJSON file to read."},
		}, shapeFields...),
		New: func(p config.Options) (datasource.Connector, error) {
			return fromParams(file.NewLocal(p.String("filename", "")), p), nil
		},
	})
	datasource.Register("http_json", datasource.Descriptor{
		Title: "JSON over HTTP",
		Fields: append([]datasource.Field{
			{Key: "url", Name: "URL", Type: "string", Required: true, Help: "The address of the JSON document."},
			{Key: "cache_dir", Name: "Cache directory", Type: "string", Help: "Keep downloads here and reuse them."},
		}, shapeFields...),
		New: func(p config.Options) (datasource.Connector, error) {
			src := httpds.NewURLSource(httpds.NewClient(httpds.Defaults), p.String("url", ""), p.String("cache_dir", ""))
			return fromParams(src, p), nil
		},
	})
}

// Connector reads JSON records from a Source.
type Connector struct {
	src       datasource.Source
	path      string
	headerMap map[string]string
}

// New returns a connector over src. path selects the envelope field; it may
// be empty.
func New(src datasource.Source, path string, headerMap map[string]string) *Connector {
	return &Connector{src: src, path: path, headerMap: headerMap}
}

func fromParams(src datasource.Source, p config.Options) *Connector {
	return New(src, p.String("records_path", ""), p.StringMap("header_map"))
}

// Load implements datasource.Connector. Sampling counts the records in a
// first pass and keeps the selected positions in a second one.
func (c *Connector) Load(ctx context.Context, req datasource.Request) ([]records.Record, error) {
	total := 0
	if req.UseSample {
		n, err := c.count(ctx)
		if err != nil {
			return nil, err
		}
		total = n
	}

	rc, err := c.src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return datasource.Collect(ctx, req, total, newReader(rc, c.path, c.headerMap).next)
}

func (c *Connector) count(ctx context.Context) (int, error) {
	rc, err := c.src.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	r := newReader(rc, c.path, nil)
	for n := 0; ; n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		_, ok, err := r.next()
		if err != nil {
			return 0, err
		}
		if !ok {
			return n, nil
		}
	}
}
