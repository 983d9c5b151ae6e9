package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"go/format"
	"strings"
	"text/template"

	"github.com/google/uuid"

	"datascout/internal/config"
	"datascout/internal/diag"
	"datascout/internal/join"
	"datascout/internal/sampling"
	"datascout/internal/schema"
	"datascout/internal/transformer"
)

// Generate returns the source of a Go main package that loads the full data
// source of p and applies its steps with the same dispatch primitives Execute
// uses. The program imports datascout internals, so it builds inside this
// module (e.g. as cmd/<name>/main.go). Unknown transformation keys always fail
// generation.
func (e *Engine) Generate(ctx context.Context, p config.Pipeline, dl *diag.Log) ([]byte, error) {
	p.UseSample = false
	var src []byte
	err := e.cat.View(func(v transformer.View) error {
		b := &codeBackend{e: e, view: v, log: dl}
		if _, err := run[*codeFunc](ctx, v, b, p, dl, runOptions{}); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := programTemplate.Execute(&buf, program{
			RunID:      uuid.NewString(),
			Funcs:      b.funcs,
			Join:       b.usesJoin,
			Extensions: v.Installed(),
			Workers:    e.workers,
			Threshold:  e.threshold,
		}); err != nil {
			return fmt.Errorf("render program: %w", err)
		}
		out, err := format.Source(buf.Bytes())
		if err != nil {
			return fmt.Errorf("format program: %w", err)
		}
		src = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

// codeFunc is the generated function of one (possibly nested) pipeline.
type codeFunc struct {
	Name string
	body strings.Builder
}

// Body returns the statements of the function.
func (f *codeFunc) Body() string { return f.body.String() }

func (f *codeFunc) printf(format string, args ...any) {
	fmt.Fprintf(&f.body, format, args...)
}

// codeBackend writes one function per pipeline. Nested join pipelines become
// functions of their own, called from the function of the join.
type codeBackend struct {
	e        *Engine
	view     transformer.View
	log      *diag.Log
	funcs    []*codeFunc
	usesJoin bool
}

func (b *codeBackend) load(ctx context.Context, p config.Pipeline, _ sampling.Technique) (*codeFunc, error) {
	f := &codeFunc{Name: fmt.Sprintf("pipeline%d", len(b.funcs))}
	b.funcs = append(b.funcs, f)

	kind := p.DataSource.Source
	if kind != config.JoinSource {
		kw, err := literal(p.DataSource.Kwargs)
		if err != nil {
			return nil, &DataSourceUnavailableError{Kind: kind, Err: err}
		}
		f.printf("rows, err := datasource.Load(ctx, %q, options(%s), datasource.Request{})\n", kind, kw)
		f.printf("if err != nil {\nlog.Fatalf(\"load %s: %%v\", err)\n}\n", kind)
		f.printf("cols := records.Columns(rows)\n")
		return f, nil
	}

	j, err := config.DecodeJoin(p.DataSource.Kwargs)
	if err != nil {
		return nil, &DataSourceUnavailableError{Kind: kind, Err: err}
	}
	how, err := join.ParseHow(j.How)
	if err != nil {
		return nil, &DataSourceUnavailableError{Kind: kind, Err: err}
	}
	sides := make([]*codeFunc, 2)
	for i, np := range []config.Pipeline{j.Left, j.Right} {
		np.UseSample = false
		out, err := run[*codeFunc](ctx, b.view, b, np, b.log, runOptions{})
		if err != nil {
			return nil, &DataSourceUnavailableError{Kind: kind, Err: err}
		}
		sides[i] = out.data
	}
	b.usesJoin = true
	f.printf("left, leftCols := %s(ctx)\n", sides[0].Name)
	f.printf("right, rightCols := %s(ctx)\n", sides[1].Name)
	f.printf("rows, cols, err := join.Merge(ctx,\n")
	f.printf("join.Side{Rows: left, Columns: leftCols, On: %#v},\n", nonNil(j.OnLeft))
	f.printf("join.Side{Rows: right, Columns: rightCols, On: %#v},\n", nonNil(j.OnRight))
	f.printf("join.How(%q))\n", how)
	f.printf("if err != nil {\nlog.Fatalf(\"join: %%v\", err)\n}\n")
	return f, nil
}

// snapshot is never called: generated programs do not capture schemas.
func (b *codeBackend) snapshot(f *codeFunc) (*codeFunc, schema.Snapshot) {
	return f, schema.Snapshot{}
}

func (b *codeBackend) apply(_ context.Context, pl plan, f *codeFunc) (*codeFunc, error) {
	if err := pl.desc.CheckArgs(pl.step.Kwargs); err != nil {
		return nil, err
	}
	kw, err := literal(pl.step.Kwargs)
	if err != nil {
		return nil, err
	}
	f.printf("\n// Step %d: %s\n{\n", pl.index, oneLine(pl.desc.RenderTitle(pl.step.Kwargs)))
	f.printf("inst := construct(%d, %q, %s, rows)\n", pl.index, pl.key(), kw)
	switch pl.desc.Mode() {
	case "global":
		f.printf("out, err := transformer.ApplyGlobal(ctx, inst.(transformer.Global), frame.Materialize(cols, rows))\n")
		f.printf("check(%d, %q, err)\n", pl.index, pl.key())
		f.printf("rows, cols = out.Rows, out.Columns\n")
	case "flatten":
		f.printf("out, err := transformer.ApplyFlatten(ctx, inst.(transformer.Flattener), rows)\n")
		f.printf("check(%d, %q, err)\n", pl.index, pl.key())
		f.printf("rows = out.Rows\n")
	case "filter":
		f.printf("out, err := transformer.ApplyRows(ctx, inst.(transformer.Row), rows, transformer.RowOptions{Workers: workers, Threshold: threshold, Filter: true})\n")
		f.printf("check(%d, %q, err)\n", pl.index, pl.key())
		f.printf("warnSkipped(%d, out)\n", pl.index)
		f.printf("rows = transformer.DropRejected(out.Rows)\n")
	default:
		f.printf("out, err := transformer.ApplyRows(ctx, inst.(transformer.Row), rows, transformer.RowOptions{Workers: workers, Threshold: threshold})\n")
		f.printf("check(%d, %q, err)\n", pl.index, pl.key())
		f.printf("warnSkipped(%d, out)\n", pl.index)
		f.printf("rows = out.Rows\n")
	}
	f.printf("}\n")
	return f, nil
}

func (b *codeBackend) finish(f *codeFunc) *codeFunc {
	f.printf("\nreturn rows, frame.Converge(cols, rows)\n")
	return f
}

// literal renders kwargs as a Go string literal holding their JSON.
func literal(kw config.Options) (string, error) {
	if kw == nil {
		kw = config.Options{}
	}
	raw, err := json.Marshal(kw)
	if err != nil {
		return "", fmt.Errorf("encode kwargs: %w", err)
	}
	return fmt.Sprintf("%q", raw), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type program struct {
	RunID      string
	Funcs      []*codeFunc
	Join       bool
	Extensions []transformer.Extension
	Workers    int
	Threshold  int
}

var programTemplate = template.Must(template.New("program").Parse(`// Code generated by scout export. DO NOT EDIT.
// Export {{.RunID}}.

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"datascout/internal/config"
	"datascout/internal/datasource"
	_ "datascout/internal/datasource/all"
	"datascout/internal/engine"
	"datascout/internal/frame"
{{- if .Join}}
	"datascout/internal/join"
{{- end}}
	"datascout/internal/transformer"
	_ "datascout/internal/transformer/builtin"
{{- range .Extensions}}{{if .ImportPath}}
	_ "{{.ImportPath}}"
{{- end}}{{end}}
	"datascout/pkg/records"
)

const (
	workers   = {{.Workers}}
	threshold = {{.Threshold}}
)

func main() {
	log.SetPrefix("export: ")
{{- range .Extensions}}
	if err := transformer.Default.Load({{printf "%q" .Name}}); err != nil {
		log.Fatal(err)
	}
{{- end}}
	rows, cols := pipeline0(context.Background())
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(engine.Respond(&engine.Result{Records: rows, Columns: cols}, nil, nil)); err != nil {
		log.Fatal(err)
	}
}
{{range .Funcs}}
func {{.Name}}(ctx context.Context) ([]records.Record, []string) {
{{.Body}}}
{{end}}
func options(raw string) config.Options {
	var o config.Options
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		log.Fatalf("decode kwargs: %v", err)
	}
	return o
}

func construct(index int, key, kwargs string, rows []records.Record) any {
	d, err := transformer.Default.Resolve(key)
	check(index, key, err)
	var example records.Record
	if len(rows) > 0 {
		example = rows[0]
	}
	inst, err := d.Construct(options(kwargs), len(rows), example)
	check(index, key, err)
	return inst
}

func check(index int, key string, err error) {
	if err != nil {
		log.Fatalf("step %d (%s): %v", index, key, err)
	}
}

func warnSkipped(index int, out transformer.Outcome) {
	if out.Skipped > 0 {
		log.Printf("step %d: %d rows could not be evaluated and were kept (first: %v)", index, out.Skipped, out.FirstSkip)
	}
}
`))
