package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"datascout/internal/diag"
)

func cmdExport(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	p, err := c.load()
	if err != nil {
		fmt.Fprintf(stderr, "scout export: %v\n", err)
		return 1
	}
	s, err := c.open("export")
	if err != nil {
		fmt.Fprintf(stderr, "scout export: %v\n", err)
		return 1
	}
	defer s.flush()

	dl := diag.New()
	src, err := s.engine.Generate(context.Background(), p, dl)
	for _, m := range dl.Messages() {
		fmt.Fprintf(stderr, "%s (%d): %s\n", m.Type, m.Code, m.Message)
	}
	if err != nil {
		fmt.Fprintf(stderr, "scout export: %v\n", err)
		return 1
	}

	if *out == "" {
		_, err = stdout.Write(src)
	} else {
		err = os.WriteFile(*out, src, 0o644)
	}
	if err != nil {
		fmt.Fprintf(stderr, "scout export: %v\n", err)
		return 1
	}
	return 0
}
