package engine

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"datascout/internal/diag"
	"datascout/internal/schema"
	"datascout/pkg/records"
)

func TestClean(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want any
	}{
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{float32(1.5), 1.5},
		{2.5, 2.5},
		{int64(3), int64(3)},
		{at, "2024-03-01T12:30:00Z"},
		{[]any{math.NaN(), "x"}, []any{"NaN", "x"}},
		{map[string]any{"n": math.Inf(1)}, map[string]any{"n": "Infinity"}},
		{records.Record{"t": at}, map[string]any{"t": "2024-03-01T12:30:00Z"}},
		{nil, nil},
	}
	for _, tc := range tests {
		if got := Clean(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Clean(%v) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

/*
TestRespond_Success encodes records positionally in column order and keeps
advisory messages.
*/
func TestRespond_Success(t *testing.T) {
	t.Parallel()

	dl := diag.New()
	dl.Infof(diag.CodeSampling, "using random")
	res := &Result{
		Records: []records.Record{{"a": int64(1), "b": math.NaN()}, {"a": nil, "b": 2.0}},
		Columns: []string{"a", "b"},
		Schemas: []schema.Snapshot{{{Name: "a", Type: "int"}, {Name: "b", Type: "float"}}},
	}
	b, err := json.Marshal(Respond(res, nil, dl))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"success":true,"messages":[{"code":-1,"type":"info","message":"using random"}],` +
		`"data":{"records":[[1,"NaN"],[null,2]],"column_types":[{"a":"int","b":"float"}],"column_names":["a","b"]}}`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}
}

func TestRespond_Failure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		code int
	}{
		{&StepError{Index: 3, Key: "math-divide", Err: errors.New("division by zero")}, 3},
		{&UnresolvedTransformationError{Index: 1, Key: "x"}, 1},
		{&DataSourceUnavailableError{Kind: "csv", Err: errors.New("no file")}, diag.CodeSource},
		{&DataSourceUnavailableError{Kind: "join", Err: &StepError{Index: 2, Key: "k", Err: errors.New("x")}}, diag.CodeSource},
		{errors.New("other"), diag.CodeGeneral},
	}
	for _, tc := range tests {
		dl := diag.New()
		dl.Warnf(1, "advisory")
		resp := Respond(&Result{}, tc.err, dl)
		if resp.Success || resp.Data != nil {
			t.Fatalf("%v: response = %+v", tc.err, resp)
		}
		if len(resp.Messages) != 2 {
			t.Fatalf("%v: messages = %+v", tc.err, resp.Messages)
		}
		last := resp.Messages[1]
		if last.Type != diag.Error || last.Code != tc.code || last.Message != tc.err.Error() {
			t.Fatalf("%v: error message = %+v", tc.err, last)
		}
		if dl.Count(diag.Error) != 0 {
			t.Fatal("Respond must not write into the log")
		}
	}
}

func TestRespond_EmptyResult(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(Respond(&Result{}, nil, nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"success":true,"messages":[],"data":{"records":[],"column_types":[],"column_names":[]}}`
	if string(b) != want {
		t.Fatalf("got %s", b)
	}
}
