package sampling

import (
	"strings"

	"datascout/internal/diag"
)

// Reconcile returns the technique a pipeline should be sampled with.
//
// steps holds the allowed techniques of each resolved step (nil means any),
// supported the techniques of the active connector (nil means any). Without
// steps the request passes through untouched. If the request is allowed by
// every constraint it is kept; if nothing is allowed it is kept with a warning;
// otherwise the first allowed technique in canonical order replaces it and an
// info message records the substitution.
func Reconcile(requested Technique, steps [][]Technique, supported []Technique, log *diag.Log) Technique {
	if len(steps) == 0 {
		return requested
	}
	allowed := intersect(All, supported)
	for _, s := range steps {
		allowed = intersect(allowed, s)
	}
	if contains(allowed, requested.OrDefault()) {
		return requested
	}
	if len(allowed) == 0 {
		log.Warnf(diag.CodeSampling,
			"no sampling technique satisfies every transformation in the pipeline; keeping %q, the preview may be inconsistent",
			requested.OrDefault())
		return requested
	}
	chosen := allowed[0]
	log.Infof(diag.CodeSampling,
		"sampling technique %q is not supported by all transformations (allowed: %s); using %q instead",
		requested.OrDefault(), join(allowed), chosen)
	return chosen
}

// intersect keeps the members of base that are in set, preserving base order.
// A nil set places no constraint.
func intersect(base, set []Technique) []Technique {
	if set == nil {
		return base
	}
	out := make([]Technique, 0, len(base))
	for _, t := range base {
		if contains(set, t) {
			out = append(out, t)
		}
	}
	return out
}

func contains(set []Technique, t Technique) bool {
	for _, s := range set {
		if s == t {
			return true
		}
	}
	return false
}

func join(ts []Technique) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
