package main

import (
	"flag"
	"fmt"
	"log"

	"datascout/internal/config"
	"datascout/internal/datasource/httpds"
	"datascout/internal/engine"
	"datascout/internal/metrics"
	"datascout/internal/metrics/datadog"
	"datascout/internal/metrics/prompush"
	"datascout/internal/sampling"
	"datascout/internal/transformer"
	"datascout/internal/transformer/builtin"

	_ "datascout/internal/datasource/all"
	_ "datascout/internal/transformer/cleaning"
)

// common holds the flags every pipeline command shares.
type common struct {
	config   string
	pipeline string
	ext      string
	tolerate bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "runtime settings file (default: scout.yaml in . or $HOME/.config/scout)")
	fs.StringVar(&c.pipeline, "pipeline", "", "pipeline descriptor JSON path")
	fs.StringVar(&c.ext, "ext", "", "comma separated transformation extensions to install")
	fs.BoolVar(&c.tolerate, "tolerate-unknown", false, "skip unknown transformations with a warning")
}

// session is everything a command needs to run a pipeline.
type session struct {
	rt     config.Runtime
	cat    *transformer.Catalog
	engine *engine.Engine
	flush  func()
}

// newMetricsBackend is a seam for tests.
var newMetricsBackend = func(rt config.Runtime, job string) (metrics.Backend, error) {
	switch rt.Metrics.Backend {
	case "prometheus":
		return prompush.NewBackend(job, rt.Metrics.PushgatewayURL)
	case "datadog":
		return datadog.NewBackend(datadog.Config{
			Addr:       rt.Metrics.DatadogAddr,
			Namespace:  "datascout.",
			GlobalTags: []string{"job:" + job},
		})
	}
	return nil, nil
}

// open loads the runtime settings and builds the catalog and engine. job
// labels metrics. The returned session must be closed with flush.
func (c *common) open(job string) (*session, error) {
	rt, err := config.LoadRuntime(c.config)
	if err != nil {
		return nil, err
	}

	cat := transformer.NewCatalog()
	if err := builtin.Register(cat); err != nil {
		return nil, fmt.Errorf("register builtins: %w", err)
	}
	for _, name := range splitList(c.ext) {
		if err := cat.Load(name); err != nil {
			return nil, fmt.Errorf("install extension: %w", err)
		}
	}

	httpds.Defaults = httpds.Config{Timeout: rt.HTTP.Timeout, MaxRetries: rt.HTTP.MaxRetries}

	s := &session{rt: rt, cat: cat, flush: func() {}}
	b, err := newMetricsBackend(rt, job)
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", rt.Metrics.Backend, err)
	} else if b != nil {
		log.Printf("metrics: backend=%s job=%s", rt.Metrics.Backend, job)
		metrics.SetBackend(b)
		s.flush = func() {
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: flush error: %v", err)
			}
		}
	}

	s.engine = engine.New(cat,
		engine.WithWorkers(rt.Engine.Workers),
		engine.WithParallelThreshold(rt.Engine.ParallelThreshold),
		engine.WithBudget(sampling.Budget{MaxBytes: rt.Sampling.MaxBytes, MaxRows: rt.Sampling.MaxRows}),
		engine.WithTolerateUnresolved(c.tolerate),
		engine.WithJob(job),
	)
	return s, nil
}

func (c *common) load() (config.Pipeline, error) {
	if c.pipeline == "" {
		return config.Pipeline{}, fmt.Errorf("-pipeline is required")
	}
	return config.LoadPipeline(c.pipeline)
}
