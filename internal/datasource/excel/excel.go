// Package excel implements the excel connector on top of excelize. The sheet
// is streamed row by row; sampling is applied to the parsed rows.
package excel

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"datascout/internal/config"
	"datascout/internal/datasource"
	"datascout/internal/datasource/file"
	"datascout/pkg/records"
)

func init() {
	datasource.Register("excel", datasource.Descriptor{
		Title: "Excel workbook",
		Fields: []datasource.Field{
			{Key: "filename", Name: "Filename", Type: "file", Required: true, Help: "The .xlsx file to read."},
			{Key: "sheet", Name: "Sheet", Type: "string", Help: "Sheet name; the first sheet when empty."},
			{Key: "has_header", Name: "Has header", Type: "boolean", Default: true},
			{Key: "parse_types", Name: "Parse types", Type: "boolean", Default: true},
			{Key: "normalize_headers", Name: "Normalize headers", Type: "boolean", Default: false},
		},
		New: func(p config.Options) (datasource.Connector, error) {
			return &Connector{
				src:        file.NewLocal(p.String("filename", "")),
				sheet:      p.String("sheet", ""),
				hasHeader:  p.Bool("has_header", true),
				parseTypes: p.Bool("parse_types", true),
				normalize:  p.Bool("normalize_headers", false),
			}, nil
		},
	})
}

// Connector reads one sheet of a workbook.
type Connector struct {
	src        datasource.Source
	sheet      string
	hasHeader  bool
	parseTypes bool
	normalize  bool
}

// Load implements datasource.Connector. Rows whose cells are all blank are
// skipped, also before the header.
func (c *Connector) Load(ctx context.Context, req datasource.Request) ([]records.Record, error) {
	rc, err := c.src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	f, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := c.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	it, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	defer it.Close()

	var headers []string
	var out []records.Record
	for n := 0; it.Next(); n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		cells, err := it.Columns()
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		if blank(cells) {
			continue
		}
		if c.hasHeader && headers == nil {
			headers = datasource.NormalizeHeaders(cells, nil, c.normalize)
			continue
		}
		out = append(out, c.record(cells, headers))
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	return datasource.SampleRows(req, out), nil
}

func (c *Connector) record(cells, headers []string) records.Record {
	rec := make(records.Record, max(len(cells), len(headers)))
	for _, h := range headers {
		rec[h] = nil
	}
	for j, v := range cells {
		key := datasource.ColumnName(j)
		if j < len(headers) {
			key = headers[j]
		}
		rec[key] = datasource.ParseCell(strings.TrimSpace(v), c.parseTypes)
	}
	return rec
}

func blank(cells []string) bool {
	for _, v := range cells {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
