// Package engine executes pipeline descriptors.
//
// A pipeline is resolved against a transformer.Catalog, its data source is
// loaded (sampled or in full), and each step is dispatched by its descriptor
// flags: row-wise, filter, flatten or global. The same orchestration drives
// two backends. Execute applies the steps to in-memory records; Generate
// emits a Go program that reproduces them.
//
// User-facing problems are collected in a diag.Log owned by the caller. A
// failing step stops the run and no records are returned for it.
package engine

import (
	"context"
	"errors"
	"log"
	"runtime"

	"github.com/google/uuid"

	"datascout/internal/config"
	"datascout/internal/datasource"
	"datascout/internal/diag"
	"datascout/internal/frame"
	"datascout/internal/join"
	"datascout/internal/metrics"
	"datascout/internal/sampling"
	"datascout/internal/schema"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

// DefaultParallelThreshold is the batch size from which row-wise steps fan
// out over the worker pool.
const DefaultParallelThreshold = 10_000

var errMissingKey = errors.New("step has no transformation key")

// Loader loads the records of one data source.
type Loader func(ctx context.Context, kind string, params config.Options, req datasource.Request) ([]records.Record, error)

// Engine runs pipelines against one catalog. It keeps no state between calls
// and is safe for concurrent use.
type Engine struct {
	cat       *transformer.Catalog
	workers   int
	threshold int
	budget    sampling.Budget
	load      Loader
	tolerate  bool
	job       string
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the number of goroutines row-wise steps may use.
func WithWorkers(n int) Option { return func(e *Engine) { e.workers = n } }

// WithParallelThreshold sets the minimum batch size for parallel row-wise
// dispatch.
func WithParallelThreshold(n int) Option { return func(e *Engine) { e.threshold = n } }

// WithBudget sets the sample budget handed to connectors.
func WithBudget(b sampling.Budget) Option { return func(e *Engine) { e.budget = b } }

// WithLoader replaces datasource.Load.
func WithLoader(fn Loader) Option { return func(e *Engine) { e.load = fn } }

// WithTolerateUnresolved drops unknown steps with a warning instead of
// failing Execute. Generate always fails on them.
func WithTolerateUnresolved(ok bool) Option { return func(e *Engine) { e.tolerate = ok } }

// WithJob sets the job label of the metrics the engine records.
func WithJob(name string) Option { return func(e *Engine) { e.job = name } }

// New returns an engine resolving steps in cat (transformer.Default when nil).
func New(cat *transformer.Catalog, opts ...Option) *Engine {
	if cat == nil {
		cat = transformer.Default
	}
	e := &Engine{
		cat:       cat,
		workers:   runtime.GOMAXPROCS(0),
		threshold: DefaultParallelThreshold,
		budget:    sampling.DefaultBudget(),
		load:      datasource.Load,
		job:       "run",
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Result is the outcome of a successful Execute.
type Result struct {
	RunID   string
	Records []records.Record
	// Columns is the union of record keys in first-seen order.
	Columns []string
	// Schemas holds one snapshot before every executed step plus one after
	// the last, when schema capture was requested.
	Schemas []schema.Snapshot
	// Technique is the sampling technique actually used; empty for a full load.
	Technique sampling.Technique
}

// Execute runs p and returns its records. Warnings and notices go to dl; the
// returned error is a *StepError, *UnresolvedTransformationError or
// *DataSourceUnavailableError.
func (e *Engine) Execute(ctx context.Context, p config.Pipeline, dl *diag.Log) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	err := e.cat.View(func(v transformer.View) error {
		out, err := e.execute(ctx, v, p, dl, p.ColumnTypes)
		if err != nil {
			return err
		}
		res.Records = out.data.rows
		res.Columns = out.data.cols
		res.Schemas = out.schemas
		res.Technique = out.technique
		return nil
	})
	if err != nil {
		log.Printf("engine: run %s failed: %v", res.RunID, err)
		return nil, err
	}
	metrics.RecordRows(e.job, metrics.KindOutput, int64(len(res.Records)))
	log.Printf("engine: run %s: %d steps, %d records, %d columns", res.RunID, len(p.Steps), len(res.Records), len(res.Columns))
	return res, nil
}

func (e *Engine) execute(ctx context.Context, v transformer.View, p config.Pipeline, dl *diag.Log, schemas bool) (outcome[*dataset], error) {
	b := &rowBackend{e: e, view: v, log: dl}
	return run[*dataset](ctx, v, b, p, dl, runOptions{schemas: schemas, tolerate: e.tolerate, job: e.job})
}

// supported returns the techniques a data source kind implements. Joins place
// no constraint of their own.
func supported(kind string) []sampling.Technique {
	if kind == config.JoinSource {
		return nil
	}
	return datasource.Supported(kind)
}

// dataset is the row backend's state between steps. view caches the frame
// built for a snapshot so a global step right after it does not build it
// again.
type dataset struct {
	rows []records.Record
	cols []string
	view *frame.Frame
}

func (d *dataset) frame() *frame.Frame {
	if d.view == nil {
		d.view = frame.Materialize(d.cols, d.rows)
	}
	return d.view
}

// rowBackend applies steps to in-memory records.
type rowBackend struct {
	e    *Engine
	view transformer.View
	log  *diag.Log
}

func (b *rowBackend) load(ctx context.Context, p config.Pipeline, tech sampling.Technique) (*dataset, error) {
	kind := p.DataSource.Source
	var (
		rows []records.Record
		cols []string
		err  error
	)
	if kind == config.JoinSource {
		rows, cols, err = b.join(ctx, p, tech)
	} else {
		req := datasource.Request{UseSample: p.UseSample, Technique: tech, Budget: b.e.budget}
		rows, err = b.e.load(ctx, kind, p.DataSource.Kwargs, req)
	}
	if err != nil {
		return nil, &DataSourceUnavailableError{Kind: kind, Err: err}
	}
	if rows == nil {
		rows = []records.Record{}
	}
	if cols == nil {
		cols = records.Columns(rows)
	}
	metrics.RecordRows(b.e.job, metrics.KindLoaded, int64(len(rows)))
	return &dataset{rows: rows, cols: cols}, nil
}

// join runs both nested pipelines with the sampling settings of the outer one
// (a nested pipeline may name its own technique) and merges their results.
func (b *rowBackend) join(ctx context.Context, p config.Pipeline, tech sampling.Technique) ([]records.Record, []string, error) {
	j, err := config.DecodeJoin(p.DataSource.Kwargs)
	if err != nil {
		return nil, nil, err
	}
	how, err := join.ParseHow(j.How)
	if err != nil {
		return nil, nil, err
	}
	left, err := b.nested(ctx, j.Left, p.UseSample, tech)
	if err != nil {
		return nil, nil, err
	}
	right, err := b.nested(ctx, j.Right, p.UseSample, tech)
	if err != nil {
		return nil, nil, err
	}
	return join.Merge(ctx,
		join.Side{Rows: left.rows, Columns: left.cols, On: j.OnLeft},
		join.Side{Rows: right.rows, Columns: right.cols, On: j.OnRight},
		how)
}

func (b *rowBackend) nested(ctx context.Context, p config.Pipeline, useSample bool, tech sampling.Technique) (*dataset, error) {
	p.UseSample = useSample
	if p.SamplingTechnique == "" {
		p.SamplingTechnique = tech
	}
	out, err := b.e.execute(ctx, b.view, p, b.log, false)
	if err != nil {
		return nil, err
	}
	return out.data, nil
}

func (b *rowBackend) snapshot(d *dataset) (*dataset, schema.Snapshot) {
	return d, schema.Infer(d.frame())
}

func (b *rowBackend) apply(ctx context.Context, pl plan, d *dataset) (*dataset, error) {
	var example records.Record
	if len(d.rows) > 0 {
		example = d.rows[0]
	}
	inst, err := pl.desc.Construct(pl.step.Kwargs, len(d.rows), example)
	if err != nil {
		return nil, err
	}

	switch {
	case pl.desc.Flags.Global:
		f, err := transformer.ApplyGlobal(ctx, inst.(transformer.Global), d.frame())
		if err != nil {
			return nil, err
		}
		return &dataset{rows: f.Rows, cols: f.Columns}, nil

	case pl.desc.Flags.Flatten:
		out, err := transformer.ApplyFlatten(ctx, inst.(transformer.Flattener), d.rows)
		if err != nil {
			return nil, err
		}
		return &dataset{rows: out.Rows, cols: d.cols}, nil
	}

	out, err := transformer.ApplyRows(ctx, inst.(transformer.Row), d.rows, transformer.RowOptions{
		Workers:   b.e.workers,
		Threshold: b.e.threshold,
		Filter:    pl.desc.Flags.Filter,
	})
	if err != nil {
		return nil, err
	}
	if out.Skipped > 0 {
		b.log.Warnf(pl.index, "%d rows could not be evaluated and were kept (first: %v)", out.Skipped, out.FirstSkip)
	}
	rows := out.Rows
	if pl.desc.Flags.Filter {
		rows = transformer.DropRejected(rows)
		metrics.RecordRows(b.e.job, metrics.KindRejected, int64(len(out.Rows)-len(rows)))
	}
	return &dataset{rows: rows, cols: d.cols}, nil
}

func (b *rowBackend) finish(d *dataset) *dataset {
	cols := frame.Converge(d.cols, d.rows)
	if cols == nil {
		cols = []string{}
	}
	return &dataset{rows: d.rows, cols: cols}
}
