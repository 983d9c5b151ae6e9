package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"datascout/internal/config"
	"datascout/internal/datasource"
)

func cmdTransformations(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("transformations", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	s, err := c.open("transformations")
	if err != nil {
		fmt.Fprintf(stderr, "scout transformations: %v\n", err)
		return 1
	}
	defer s.flush()
	return writeJSON(stdout, stderr, s.cat.List())
}

func cmdSources(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sources", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return writeJSON(stdout, stderr, datasource.Manifest())
}

func cmdValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	p, err := c.load()
	if err != nil {
		fmt.Fprintf(stderr, "scout validate: %v\n", err)
		return 1
	}

	hasError := false
	for _, iss := range config.ValidatePipeline(p) {
		fmt.Fprintf(stdout, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		fmt.Fprintf(stderr, "descriptor is invalid: %s\n", c.pipeline)
		return 1
	}
	fmt.Fprintf(stdout, "descriptor is valid: %s\n", c.pipeline)
	return 0
}

func writeJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "scout: encode: %v\n", err)
		return 1
	}
	return 0
}
