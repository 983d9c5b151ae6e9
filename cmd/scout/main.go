// Command scout runs, exports and materializes data pipelines described by
// JSON descriptors.
//
//	scout run -pipeline p.json            execute and print the response envelope
//	scout export -pipeline p.json -o x.go generate a Go program for the pipeline
//	scout materialize -pipeline p.json -storage sqlite -dsn out.db -table t
//	scout transformations                 list the transformation catalog
//	scout sources                         list data source kinds and parameters
//	scout validate -pipeline p.json       lint a descriptor
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
)

type command struct {
	summary string
	run     func(args []string, stdout, stderr io.Writer) int
}

var commands = map[string]command{
	"run":             {"execute a pipeline and print its records", cmdRun},
	"export":          {"generate Go source reproducing a pipeline", cmdExport},
	"materialize":     {"execute a full pipeline and write it into a SQL table", cmdMaterialize},
	"transformations": {"list the transformation catalog as JSON", cmdTransformations},
	"sources":         {"list data source kinds as JSON", cmdSources},
	"validate":        {"lint a pipeline descriptor", cmdValidate},
}

func main() {
	log.SetOutput(os.Stderr)
	os.Exit(dispatch(os.Args[1:], os.Stdout, os.Stderr))
}

func dispatch(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "scout: unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}
	return cmd.run(args[1:], stdout, stderr)
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: scout <command> [flags]")
	for _, n := range names {
		fmt.Fprintf(w, "  %-16s %s\n", n, commands[n].summary)
	}
}

// splitList parses a comma separated flag value.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
