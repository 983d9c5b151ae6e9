package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"datascout/internal/config"
	"datascout/internal/diag"
	"datascout/internal/schema"
	"datascout/internal/storage"

	_ "datascout/internal/storage/all"
)

type materializeFlags struct {
	kind     string
	dsn      string
	table    string
	keys     string
	batch    int
	create   bool
	schedule string
}

func cmdMaterialize(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("materialize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	var mf materializeFlags
	fs.StringVar(&mf.kind, "storage", "sqlite", fmt.Sprintf("storage kind %v", storage.ListKinds()))
	fs.StringVar(&mf.dsn, "dsn", "", "storage DSN")
	fs.StringVar(&mf.table, "table", "", "target table, optionally schema qualified")
	fs.StringVar(&mf.keys, "keys", "", "comma separated key columns; rows with an existing key are replaced")
	fs.IntVar(&mf.batch, "batch", storage.DefaultBatchSize, "rows per batch")
	fs.BoolVar(&mf.create, "create", true, "create the table when it does not exist")
	fs.StringVar(&mf.schedule, "schedule", "", "cron expression; when set the load repeats until interrupted")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	p, err := c.load()
	if err != nil {
		fmt.Fprintf(stderr, "scout materialize: %v\n", err)
		return 1
	}
	// Materialization always works on the full dataset and needs the final
	// schema to type the table.
	p.UseSample = false
	p.ColumnTypes = true

	s, err := c.open("materialize")
	if err != nil {
		fmt.Fprintf(stderr, "scout materialize: %v\n", err)
		return 1
	}
	defer s.flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if mf.schedule == "" {
		n, err := materializeOnce(ctx, s, p, mf, stderr)
		if err != nil {
			fmt.Fprintf(stderr, "scout materialize: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "materialized %d rows into %s\n", n, mf.table)
		return 0
	}

	sched := cron.New()
	_, err = sched.AddFunc(mf.schedule, func() {
		n, err := materializeOnce(ctx, s, p, mf, stderr)
		if err != nil {
			log.Printf("materialize: scheduled run failed: %v", err)
			return
		}
		log.Printf("materialize: scheduled run loaded %d rows into %s", n, mf.table)
		s.flush()
	})
	if err != nil {
		fmt.Fprintf(stderr, "scout materialize: bad -schedule %q: %v\n", mf.schedule, err)
		return 2
	}
	log.Printf("materialize: scheduled %q into %s", mf.schedule, mf.table)
	sched.Start()
	<-ctx.Done()
	<-sched.Stop().Done()
	log.Printf("materialize: scheduler stopped")
	return 0
}

// materializeOnce runs p on its full dataset and loads the result into the
// configured table.
func materializeOnce(ctx context.Context, s *session, p config.Pipeline, mf materializeFlags, stderr io.Writer) (int64, error) {
	dl := diag.New()
	res, err := s.engine.Execute(ctx, p, dl)
	for _, m := range dl.Messages() {
		fmt.Fprintf(stderr, "%s (%d): %s\n", m.Type, m.Code, m.Message)
	}
	if err != nil {
		return 0, err
	}
	if len(res.Columns) == 0 {
		return 0, errors.New("pipeline produced no columns")
	}

	cfg := storage.Config{
		Kind:       mf.kind,
		DSN:        mf.dsn,
		Table:      mf.table,
		KeyColumns: splitList(mf.keys),
	}
	repo, err := storage.New(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer repo.Close()

	var snap schema.Snapshot
	if len(res.Schemas) > 0 {
		snap = res.Schemas[len(res.Schemas)-1]
	}
	return storage.Materialize(ctx, repo, cfg, snap, res.Columns, res.Records, storage.Options{
		BatchSize:   mf.batch,
		CreateTable: mf.create,
		Job:         "materialize",
	})
}
