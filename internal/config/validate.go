package config

import (
	"fmt"
	"strings"

	"datascout/internal/join"
)

// IssueSeverity represents the severity of a descriptor issue.
type IssueSeverity string

const (
	// SeverityError marks a descriptor the engine will refuse to run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning marks something the engine accepts but probably
	// does not do what the author meant.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding for a Pipeline.
//
// Path is a dotted path into the descriptor (e.g. "data_source.source",
// "pipeline[1].transformation", "data_source.kwargs.left.pipeline[0]").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static checks over a decoded Pipeline. It knows
// nothing about the transformation catalog or the connector registry; those
// lookups happen when the pipeline runs.
//
// Example:
//
//	p, err := config.LoadPipeline("p.json")
//	if err != nil { ... }
//	for _, iss := range config.ValidatePipeline(p) {
//	    fmt.Println(iss)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue
	validatePipeline(p, "", &issues)
	return issues
}

func validatePipeline(p Pipeline, prefix string, issues *[]Issue) {
	add := func(sev IssueSeverity, path, format string, args ...any) {
		*issues = append(*issues, Issue{Severity: sev, Path: prefix + path, Message: fmt.Sprintf(format, args...)})
	}

	kind := strings.TrimSpace(p.DataSource.Source)
	if kind == "" {
		add(SeverityError, "data_source.source", "data source kind must not be empty")
	}
	if kind == JoinSource {
		validateJoin(p.DataSource.Kwargs, prefix+"data_source.kwargs.", issues)
	}

	switch t := p.SamplingTechnique; {
	case t == "":
	case !t.Valid():
		add(SeverityError, "sampling_technique", "unknown sampling technique %q", t)
	case !p.UseSample && prefix == "":
		add(SeverityWarning, "sampling_technique", "ignored because use_sample is false")
	}

	for i, st := range p.Steps {
		if strings.TrimSpace(st.Transformation) == "" {
			add(SeverityError, fmt.Sprintf("pipeline[%d].transformation", i), "transformation key must not be empty")
		}
	}
}

func validateJoin(kw Options, prefix string, issues *[]Issue) {
	add := func(sev IssueSeverity, path, format string, args ...any) {
		*issues = append(*issues, Issue{Severity: sev, Path: prefix + path, Message: fmt.Sprintf(format, args...)})
	}

	for _, side := range []string{"left", "right"} {
		np, err := NestedPipeline(kw.Any(side))
		if err != nil {
			add(SeverityError, side, "%v", err)
			continue
		}
		validatePipeline(np, prefix+side+".", issues)
	}

	how, err := join.ParseHow(kw.String("how", ""))
	if err != nil {
		add(SeverityError, "how", "%v", err)
	}
	onLeft, onRight := kw.StringSlice("on_left"), kw.StringSlice("on_right")
	if len(onLeft) != len(onRight) {
		add(SeverityError, "on_right", "on_left has %d fields but on_right has %d", len(onLeft), len(onRight))
	}
	switch {
	case how == join.Cross && len(onLeft) > 0:
		add(SeverityError, "on_left", "a cross join takes no key fields")
	case err == nil && how != join.Cross && len(onLeft) == 0:
		add(SeverityError, "on_left", "a %s join needs at least one key field", how)
	}
}
