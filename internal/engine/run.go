package engine

import (
	"context"
	"time"

	"datascout/internal/config"
	"datascout/internal/diag"
	"datascout/internal/metrics"
	"datascout/internal/sampling"
	"datascout/internal/schema"
	"datascout/internal/transformer"
)

// plan is one resolved step.
type plan struct {
	index int // 1-based position in the declared pipeline
	step  config.Step
	desc  *transformer.Descriptor
}

func (p plan) key() string { return p.step.Transformation }

// backend is what differs between executing a pipeline and generating code
// for it. I is the backend's view of the dataset between steps.
type backend[I any] interface {
	// load produces the dataset of the pipeline's data source.
	load(ctx context.Context, p config.Pipeline, tech sampling.Technique) (I, error)
	// snapshot infers the schema of the dataset as it stands.
	snapshot(data I) (I, schema.Snapshot)
	// apply constructs the step and dispatches the dataset through it.
	apply(ctx context.Context, pl plan, data I) (I, error)
	// finish converges the dataset after the last step.
	finish(data I) I
}

// runOptions are the per-call switches of run.
type runOptions struct {
	schemas  bool
	tolerate bool
	// job labels step metrics; empty records none.
	job string
}

// outcome is what run hands back to the caller of a backend.
type outcome[I any] struct {
	data      I
	schemas   []schema.Snapshot
	technique sampling.Technique
}

// run drives one pipeline through b. Every step is resolved before the data
// source is touched; steps then run strictly in declared order, each behind
// its own failure boundary.
func run[I any](ctx context.Context, v transformer.View, b backend[I], p config.Pipeline, log *diag.Log, opt runOptions) (outcome[I], error) {
	var out outcome[I]

	plans, err := resolve(v, p.Steps, log, opt.tolerate)
	if err != nil {
		return out, err
	}

	tech := p.SamplingTechnique
	if p.UseSample {
		allowed := make([][]sampling.Technique, len(plans))
		for i, pl := range plans {
			allowed[i] = pl.desc.Sampling
		}
		tech = sampling.Reconcile(tech.OrDefault(), allowed, supported(p.DataSource.Source), log)
		out.technique = tech.OrDefault()
	}

	data, err := b.load(ctx, p, tech.OrDefault())
	if err != nil {
		return out, err
	}

	for _, pl := range plans {
		if err := ctx.Err(); err != nil {
			return out, &StepError{Index: pl.index, Key: pl.key(), Err: err}
		}
		if opt.schemas {
			var s schema.Snapshot
			data, s = b.snapshot(data)
			out.schemas = append(out.schemas, s)
		}
		start := time.Now()
		data, err = applyStep(ctx, b, pl, data)
		if opt.job != "" {
			metrics.RecordStep(opt.job, pl.key(), err, time.Since(start))
		}
		if err != nil {
			return out, &StepError{Index: pl.index, Key: pl.key(), Err: err}
		}
	}

	data = b.finish(data)
	if opt.schemas {
		var s schema.Snapshot
		data, s = b.snapshot(data)
		out.schemas = append(out.schemas, s)
	}
	out.data = data
	return out, nil
}

// applyStep is b.apply with panics, e.g. from a descriptor's constructor,
// turned into errors so they stay inside the step's failure boundary.
func applyStep[I any](ctx context.Context, b backend[I], pl plan, data I) (out I, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &transformer.PanicError{Value: v}
		}
	}()
	return b.apply(ctx, pl, data)
}

// resolve looks every step up in the catalog. Unknown keys fail the whole
// pipeline unless tolerate is set, in which case they are dropped with one
// warning each.
func resolve(v transformer.View, steps []config.Step, log *diag.Log, tolerate bool) ([]plan, error) {
	plans := make([]plan, 0, len(steps))
	for i, st := range steps {
		idx := i + 1
		if st.Transformation == "" {
			return nil, &StepError{Index: idx, Err: errMissingKey}
		}
		d, err := v.Resolve(st.Transformation)
		if err != nil {
			if !tolerate {
				return nil, &UnresolvedTransformationError{Index: idx, Key: st.Transformation}
			}
			log.Warnf(idx, "transformation %q does not exist; the step is skipped", st.Transformation)
			continue
		}
		if st.Kwargs == nil {
			st.Kwargs = config.Options{}
		}
		plans = append(plans, plan{index: idx, step: st, desc: d})
	}
	return plans, nil
}
