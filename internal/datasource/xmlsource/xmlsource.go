// Package xmlsource implements the xml and http_xml connectors. Each
// <record_tag> element becomes one record whose columns are extracted with
// relative element paths; without configured paths they are discovered from
// the head of the document. Records are parsed by a worker pool and emitted in
// document order.
package xmlsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"

	"datascout/internal/config"
	"datascout/internal/datasource"
	"datascout/internal/datasource/file"
	"datascout/internal/datasource/httpds"
	"datascout/pkg/records"
)

// discoverBytes is the document prefix inspected when the record tag or the
// paths are not configured.
const discoverBytes = 1 << 20

var extractFields = []datasource.Field{
	{Key: "record_tag", Name: "Record element", Type: "string",
		Help: "Element holding one record; the most frequent child of the root when empty."},
	{Key: "fields", Name: "Fields", Type: "string",
		Help: `Object mapping column names to paths below the record, e.g. {"doi": "IdList/Id[@type='doi']"}.`},
	{Key: "lists", Name: "Lists", Type: "string", Help: "Like fields, but every match is collected into a list."},
	{Key: "parse_types", Name: "Parse types", Type: "boolean", Default: true, Help: "Read integer and decimal text as numbers."},
	{Key: "workers", Name: "Workers", Type: "number", Default: 0, Help: "Parsing goroutines; the number of CPUs when 0."},
}

func init() {
	datasource.Register("xml", datasource.Descriptor{
		Title: "XML file",
		Fields: append([]datasource.Field{
			{Key: "filename", Name: "Filename", Type: "file", Required: true, Help: "The XML file to read."},
		}, extractFields...),
		New: func(p config.Options) (datasource.Connector, error) {
			return fromParams(file.NewLocal(p.String("filename", "")), p), nil
		},
	})
	datasource.Register("http_xml", datasource.Descriptor{
		Title: "XML over HTTP",
		Fields: append([]datasource.Field{
			{Key: "url", Name: "URL", Type: "string", Required: true, Help: "The address of the XML document."},
			{Key: "cache_dir", Name: "Cache directory", Type: "string", Help: "Keep downloads here and reuse them."},
		}, extractFields...),
		New: func(p config.Options) (datasource.Connector, error) {
			src := httpds.NewURLSource(httpds.NewClient(httpds.Defaults), p.String("url", ""), p.String("cache_dir", ""))
			return fromParams(src, p), nil
		},
	})
}

// Connector reads records from an XML Source.
type Connector struct {
	src        datasource.Source
	cfg        Config
	parseTypes bool
	workers    int
}

// New returns a connector over src. Empty parts of cfg are discovered.
func New(src datasource.Source, cfg Config, parseTypes bool, workers int) *Connector {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Connector{src: src, cfg: cfg, parseTypes: parseTypes, workers: workers}
}

func fromParams(src datasource.Source, p config.Options) *Connector {
	cfg := Config{
		RecordTag: p.String("record_tag", ""),
		Fields:    p.StringMap("fields"),
		Lists:     p.StringMap("lists"),
	}
	return New(src, cfg, p.Bool("parse_types", true), p.Int("workers", 0))
}

// Load implements datasource.Connector.
func (c *Connector) Load(ctx context.Context, req datasource.Request) ([]records.Record, error) {
	cfg, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	comp, err := compile(cfg)
	if err != nil {
		return nil, err
	}

	total := 0
	if req.UseSample {
		rc, err := c.src.Open(ctx)
		if err != nil {
			return nil, err
		}
		total, err = count(ctx, rc, cfg.RecordTag)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("xml: count <%s>: %w", cfg.RecordTag, err)
		}
	}

	rc, err := c.src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	next, wait := c.stream(ctx, rc, &comp)
	rows, err := datasource.Collect(ctx, req, total, next)
	cancel()
	if werr := wait(); werr != nil && !errors.Is(werr, context.Canceled) && err == nil {
		err = werr
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// resolve fills the record tag and paths that are not configured from the
// head of the document.
func (c *Connector) resolve(ctx context.Context) (Config, error) {
	cfg := c.cfg
	if cfg.RecordTag != "" && len(cfg.Fields)+len(cfg.Lists) > 0 {
		return cfg, nil
	}
	head := func() (io.ReadCloser, error) {
		rc, err := c.src.Open(ctx)
		if err != nil {
			return nil, err
		}
		return struct {
			io.Reader
			io.Closer
		}{io.LimitReader(rc, discoverBytes), rc}, nil
	}

	if cfg.RecordTag == "" {
		rc, err := head()
		if err != nil {
			return cfg, err
		}
		tag, err := guessRecordTag(rc)
		rc.Close()
		if err != nil {
			return cfg, fmt.Errorf("xml: guess record tag: %w", err)
		}
		if tag == "" {
			return cfg, fmt.Errorf("xml: no record elements found; set record_tag")
		}
		cfg.RecordTag = tag
	}
	if len(cfg.Fields)+len(cfg.Lists) == 0 {
		rc, err := head()
		if err != nil {
			return cfg, err
		}
		found, err := discover(rc, cfg.RecordTag)
		rc.Close()
		if err != nil {
			return cfg, fmt.Errorf("xml: discover <%s>: %w", cfg.RecordTag, err)
		}
		cfg.Fields, cfg.Lists = found.Fields, found.Lists
		log.Printf("datasource: xml: discovered %d fields and %d lists below <%s>", len(cfg.Fields), len(cfg.Lists), cfg.RecordTag)
	}
	return cfg, nil
}

type parsed struct {
	rec records.Record
	err error
}

type job struct {
	index int
	b     []byte
	out   chan parsed
}

// stream starts the sharder and the parsing workers. next yields the parsed
// records in document order; wait returns the first sharding error once the
// pipeline has stopped.
func (c *Connector) stream(ctx context.Context, r io.Reader, comp *compiled) (next datasource.Cursor, wait func() error) {
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, 4*c.workers)
	ordered := make(chan chan parsed, 4*c.workers)

	g.Go(func() error {
		defer close(jobs)
		defer close(ordered)
		return shard(gctx, r, comp.recordTag, func(i int, b []byte) error {
			j := job{index: i, b: b, out: make(chan parsed, 1)}
			select {
			case ordered <- j.out:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case jobs <- j:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})
	for w := 0; w < c.workers; w++ {
		g.Go(func() error {
			for j := range jobs {
				rec, err := parseRecord(j.b, comp, c.parseTypes)
				if err != nil {
					err = fmt.Errorf("xml: record %d: %w", j.index+1, err)
				}
				j.out <- parsed{rec: rec, err: err}
			}
			return nil
		})
	}

	next = func() (records.Record, bool, error) {
		out, ok := <-ordered
		if !ok {
			if err := g.Wait(); err != nil {
				return nil, false, err
			}
			return nil, false, nil
		}
		select {
		case p := <-out:
			if p.err != nil {
				return nil, false, p.err
			}
			return p.rec, true, nil
		case <-gctx.Done():
			return nil, false, gctx.Err()
		}
	}
	return next, g.Wait
}
