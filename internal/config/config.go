// Package config defines the JSON descriptor a caller hands to the engine,
// the typed parameter bag used by connectors and transformations, and the
// runtime settings of the process.
//
// A pipeline descriptor looks like:
//
//	{
//	  "data_source": { "source": "csv", "kwargs": { "filename": "in.csv" } },
//	  "pipeline": [
//	    { "transformation": "math-add", "kwargs": { "fields": ["a", "b"], "output": "c" } }
//	  ],
//	  "use_sample": true,
//	  "sampling_technique": "top",
//	  "column_types": true
//	}
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"datascout/internal/sampling"
)

// JoinSource is the reserved data source kind that combines two nested
// pipelines. It is resolved by the engine, not by a connector.
const JoinSource = "join"

// Pipeline is the declarative input of one engine call.
type Pipeline struct {
	DataSource        DataSource         `json:"data_source"`
	Steps             []Step             `json:"pipeline"`
	UseSample         bool               `json:"use_sample"`
	SamplingTechnique sampling.Technique `json:"sampling_technique"`
	ColumnTypes       bool               `json:"column_types"`
}

// DataSource names a connector kind and its parameters.
type DataSource struct {
	Source string  `json:"source"`
	Kwargs Options `json:"kwargs"`
}

// Step is one declared transformation.
type Step struct {
	Transformation string  `json:"transformation"`
	Kwargs         Options `json:"kwargs"`
}

// Join holds the decoded kwargs of a "join" data source.
type Join struct {
	Left    Pipeline
	Right   Pipeline
	OnLeft  []string
	OnRight []string
	How     string
}

// DecodePipeline reads one JSON pipeline descriptor.
func DecodePipeline(r io.Reader) (Pipeline, error) {
	var p Pipeline
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode pipeline: %w", err)
	}
	if p.DataSource.Kwargs == nil {
		p.DataSource.Kwargs = Options{}
	}
	return p, nil
}

// LoadPipeline decodes the descriptor stored at path.
func LoadPipeline(path string) (Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return DecodePipeline(f)
}

// NestedPipeline interprets v (a join side) as a pipeline. Both a full
// pipeline descriptor and a bare data source descriptor are accepted; the
// latter becomes a pipeline without steps.
func NestedPipeline(v any) (Pipeline, error) {
	if v == nil {
		return Pipeline{}, fmt.Errorf("nested pipeline is missing")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Pipeline{}, fmt.Errorf("encode nested pipeline: %w", err)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Pipeline{}, fmt.Errorf("nested pipeline must be an object: %w", err)
	}
	if _, ok := probe["data_source"]; !ok {
		if _, ok := probe["source"]; !ok {
			return Pipeline{}, fmt.Errorf("nested pipeline has neither data_source nor source")
		}
		var ds DataSource
		if err := json.Unmarshal(raw, &ds); err != nil {
			return Pipeline{}, fmt.Errorf("decode nested data source: %w", err)
		}
		return Pipeline{DataSource: ds}, nil
	}
	var p Pipeline
	if err := json.Unmarshal(raw, &p); err != nil {
		return Pipeline{}, fmt.Errorf("decode nested pipeline: %w", err)
	}
	return p, nil
}

// DecodeJoin extracts the join parameters from the kwargs of a join source.
func DecodeJoin(kw Options) (Join, error) {
	var j Join
	var err error
	if j.Left, err = NestedPipeline(kw.Any("left")); err != nil {
		return Join{}, fmt.Errorf("join left: %w", err)
	}
	if j.Right, err = NestedPipeline(kw.Any("right")); err != nil {
		return Join{}, fmt.Errorf("join right: %w", err)
	}
	j.OnLeft = kw.StringSlice("on_left")
	j.OnRight = kw.StringSlice("on_right")
	j.How = kw.String("how", "inner")
	if len(j.OnLeft) != len(j.OnRight) {
		return Join{}, fmt.Errorf("join: on_left has %d fields but on_right has %d", len(j.OnLeft), len(j.OnRight))
	}
	return j, nil
}
