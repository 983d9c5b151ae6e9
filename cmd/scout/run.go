package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"datascout/internal/diag"
	"datascout/internal/engine"
)

func cmdRun(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	sample := fs.Bool("sample", false, "force use_sample on")
	pretty := fs.Bool("pretty", false, "indent the JSON response")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	p, err := c.load()
	if err != nil {
		fmt.Fprintf(stderr, "scout run: %v\n", err)
		return 1
	}
	if *sample {
		p.UseSample = true
	}
	s, err := c.open("run")
	if err != nil {
		fmt.Fprintf(stderr, "scout run: %v\n", err)
		return 1
	}
	defer s.flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dl := diag.New()
	res, err := s.engine.Execute(ctx, p, dl)
	resp := engine.Respond(res, err, dl)

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if encErr := enc.Encode(resp); encErr != nil {
		fmt.Fprintf(stderr, "scout run: encode response: %v\n", encErr)
		return 1
	}
	if !resp.Success {
		return 1
	}
	return 0
}
