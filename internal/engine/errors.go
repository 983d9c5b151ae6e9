package engine

import (
	"errors"
	"fmt"

	"datascout/internal/diag"
)

// StepError is a failure while constructing or applying a resolved step.
// Index is 1-based.
type StepError struct {
	Index int
	Key   string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Key, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// UnresolvedTransformationError names a step whose key is not in the catalog.
type UnresolvedTransformationError struct {
	Index int
	Key   string
}

func (e *UnresolvedTransformationError) Error() string {
	return fmt.Sprintf("step %d: transformation %q does not exist", e.Index, e.Key)
}

// DataSourceUnavailableError is returned when the data source cannot be
// resolved, built or read. No step runs in that case.
type DataSourceUnavailableError struct {
	Kind string
	Err  error
}

func (e *DataSourceUnavailableError) Error() string {
	return fmt.Sprintf("data source %q unavailable: %v", e.Kind, e.Err)
}

func (e *DataSourceUnavailableError) Unwrap() error { return e.Err }

// code returns the diagnostics code err is reported under: the step index for
// step failures, diag.CodeSource for data source failures. A failing nested
// join pipeline counts as a data source failure of the outer pipeline.
func code(err error) int {
	var de *DataSourceUnavailableError
	if errors.As(err, &de) {
		return diag.CodeSource
	}
	var se *StepError
	if errors.As(err, &se) {
		return se.Index
	}
	var ue *UnresolvedTransformationError
	if errors.As(err, &ue) {
		return ue.Index
	}
	return diag.CodeGeneral
}
