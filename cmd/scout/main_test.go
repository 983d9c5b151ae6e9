package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"datascout/internal/config"
	"datascout/internal/metrics"
)

// fixture writes a CSV, a descriptor over it and an empty runtime file, and
// returns the descriptor and runtime paths.
func fixture(t *testing.T, steps string) (pipeline, runtime string) {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "people.csv")
	if err := os.WriteFile(csvPath, []byte("id,name,score\n1,ann,3.5\n2,bob,4.25\n3,cy,\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	desc := map[string]any{
		"data_source": map[string]any{"source": "csv", "kwargs": map[string]any{"filename": csvPath}},
		"pipeline":    json.RawMessage(steps),
	}
	raw, err := json.Marshal(desc)
	if err != nil {
		t.Fatal(err)
	}
	pipeline = filepath.Join(dir, "pipeline.json")
	if err := os.WriteFile(pipeline, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	runtime = filepath.Join(dir, "scout.yaml")
	if err := os.WriteFile(runtime, []byte("metrics:\n  backend: none\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return pipeline, runtime
}

const upperName = `[{"transformation":"format-uppercase","kwargs":{"fields":["name"]}}]`

func runCmd(args ...string) (code int, stdout, stderr string) {
	var out, errb bytes.Buffer
	code = dispatch(args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestDispatch_Usage(t *testing.T) {
	code, _, stderr := runCmd()
	if code != 2 || !strings.Contains(stderr, "usage: scout") {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
	code, _, stderr = runCmd("frobnicate")
	if code != 2 || !strings.Contains(stderr, `unknown command "frobnicate"`) {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a, ,b ,", []string{"a", "b"}},
	}
	for _, tc := range tests {
		if got := splitList(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("splitList(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

/*
TestRun executes a descriptor end to end and prints the response envelope
with positional records.
*/
func TestRun(t *testing.T) {
	pipeline, runtime := fixture(t, upperName)
	code, stdout, stderr := runCmd("run", "-config", runtime, "-pipeline", pipeline)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Records     [][]any  `json:"records"`
			ColumnNames []string `json:"column_names"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if !resp.Success {
		t.Fatalf("response = %s", stdout)
	}
	if want := []string{"id", "name", "score"}; !reflect.DeepEqual(resp.Data.ColumnNames, want) {
		t.Fatalf("columns = %v, want %v", resp.Data.ColumnNames, want)
	}
	want := [][]any{{1.0, "ANN", 3.5}, {2.0, "BOB", 4.25}, {3.0, "CY", nil}}
	if !reflect.DeepEqual(resp.Data.Records, want) {
		t.Fatalf("records = %v, want %v", resp.Data.Records, want)
	}
}

func TestRun_Failure(t *testing.T) {
	pipeline, runtime := fixture(t, `[{"transformation":"no-such-step"}]`)
	code, stdout, _ := runCmd("run", "-config", runtime, "-pipeline", pipeline)
	if code != 1 || !strings.Contains(stdout, `"success":false`) {
		t.Fatalf("code=%d stdout=%s", code, stdout)
	}

	code, stdout, stderr := runCmd("run", "-config", runtime, "-pipeline", pipeline, "-tolerate-unknown")
	if code != 0 || !strings.Contains(stdout, `"success":true`) {
		t.Fatalf("tolerated: code=%d stdout=%s stderr=%s", code, stdout, stderr)
	}
}

func TestRun_MissingPipeline(t *testing.T) {
	code, _, stderr := runCmd("run")
	if code != 1 || !strings.Contains(stderr, "-pipeline is required") {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
}

func TestExport(t *testing.T) {
	pipeline, runtime := fixture(t, upperName)
	out := filepath.Join(t.TempDir(), "main.go")
	code, _, stderr := runCmd("export", "-config", runtime, "-pipeline", pipeline, "-o", out)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
	src, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"package main", `"format-uppercase"`, `datasource.Load(ctx, "csv"`} {
		if !strings.Contains(string(src), want) {
			t.Fatalf("export lacks %q:\n%s", want, src)
		}
	}
}

/*
TestMaterialize_SQLite loads the full result into a SQLite table twice; the
key column makes the second load replace rows instead of duplicating them.
*/
func TestMaterialize_SQLite(t *testing.T) {
	pipeline, runtime := fixture(t, upperName)
	dsn := filepath.Join(t.TempDir(), "out.db")
	args := []string{"materialize", "-config", runtime, "-pipeline", pipeline,
		"-storage", "sqlite", "-dsn", dsn, "-table", "people", "-keys", "id", "-batch", "2"}
	for i := 0; i < 2; i++ {
		code, stdout, stderr := runCmd(args...)
		if code != 0 {
			t.Fatalf("load %d: code=%d stderr=%s", i, code, stderr)
		}
		if !strings.Contains(stdout, "materialized 3 rows into people") {
			t.Fatalf("load %d: stdout=%q", i, stdout)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	rows, err := db.Query(`SELECT id, name FROM "people" ORDER BY id`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			t.Fatal(err)
		}
		got = append(got, name)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	if want := []string{"ANN", "BOB", "CY"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

func TestMaterialize_Errors(t *testing.T) {
	pipeline, runtime := fixture(t, upperName)
	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"unknown storage", []string{"-storage", "oracle", "-table", "t"}, 1, "unsupported storage.kind=oracle"},
		{"bad schedule", []string{"-dsn", filepath.Join(t.TempDir(), "x.db"), "-table", "t", "-schedule", "every tuesday"}, 2, "bad -schedule"},
	}
	for _, tc := range tests {
		args := append([]string{"materialize", "-config", runtime, "-pipeline", pipeline}, tc.args...)
		code, _, stderr := runCmd(args...)
		if code != tc.code || !strings.Contains(stderr, tc.want) {
			t.Fatalf("%s: code=%d stderr=%s", tc.name, code, stderr)
		}
	}
}

func TestValidate(t *testing.T) {
	pipeline, runtime := fixture(t, upperName)
	code, stdout, _ := runCmd("validate", "-config", runtime, "-pipeline", pipeline)
	if code != 0 || !strings.Contains(stdout, "descriptor is valid") {
		t.Fatalf("code=%d stdout=%s", code, stdout)
	}

	pipeline, runtime = fixture(t, `[{"transformation":""}]`)
	code, stdout, _ = runCmd("validate", "-config", runtime, "-pipeline", pipeline)
	if code != 1 || !strings.Contains(stdout, "error: pipeline[0].transformation") {
		t.Fatalf("code=%d stdout=%s", code, stdout)
	}
}

func TestTransformations(t *testing.T) {
	_, runtime := fixture(t, "[]")
	list := func(extra ...string) map[string]json.RawMessage {
		t.Helper()
		code, stdout, stderr := runCmd(append([]string{"transformations", "-config", runtime}, extra...)...)
		if code != 0 {
			t.Fatalf("code=%d stderr=%s", code, stderr)
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal([]byte(stdout), &m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return m
	}

	base := list()
	if _, ok := base["format-uppercase"]; !ok {
		t.Fatal("built-in transformation missing")
	}
	if _, ok := base["clean-coerce"]; ok {
		t.Fatal("extension listed without -ext")
	}
	if _, ok := list("-ext", "cleaning")["clean-coerce"]; !ok {
		t.Fatal("extension not installed by -ext")
	}

	code, _, stderr := runCmd("transformations", "-config", runtime, "-ext", "nope")
	if code != 1 || !strings.Contains(stderr, "install extension") {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
}

func TestSources(t *testing.T) {
	code, stdout, _ := runCmd("sources")
	if code != 0 {
		t.Fatalf("code=%d", code)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stdout), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, kind := range []string{"csv", "http_csv"} {
		if _, ok := m[kind]; !ok {
			t.Fatalf("sources lack %q: %s", kind, stdout)
		}
	}
}

type countingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	flushed  int
}

func (b *countingBackend) IncCounter(name string, delta float64, _ metrics.Labels) {
	b.mu.Lock()
	b.counters[name] += delta
	b.mu.Unlock()
}

func (b *countingBackend) ObserveHistogram(string, float64, metrics.Labels) {}

func (b *countingBackend) Flush() error {
	b.mu.Lock()
	b.flushed++
	b.mu.Unlock()
	return nil
}

/*
TestRun_MetricsBackend checks that the backend chosen by the runtime settings
is installed for the run and flushed when the command returns.
*/
func TestRun_MetricsBackend(t *testing.T) {
	pipeline, runtime := fixture(t, upperName)
	if err := os.WriteFile(runtime, []byte("metrics:\n  backend: prometheus\n  pushgateway_url: http://127.0.0.1:1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := &countingBackend{counters: map[string]float64{}}
	var gotJob string
	orig := newMetricsBackend
	newMetricsBackend = func(rt config.Runtime, job string) (metrics.Backend, error) {
		if rt.Metrics.Backend != "prometheus" {
			t.Fatalf("backend = %q", rt.Metrics.Backend)
		}
		gotJob = job
		return b, nil
	}
	defer func() {
		newMetricsBackend = orig
		metrics.Reset()
	}()

	if code, _, stderr := runCmd("run", "-config", runtime, "-pipeline", pipeline); code != 0 {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
	if gotJob != "run" || b.flushed != 1 || len(b.counters) == 0 {
		t.Fatalf("job=%q flushed=%d counters=%v", gotJob, b.flushed, b.counters)
	}
}

func TestNewMetricsBackend(t *testing.T) {
	tests := []struct {
		backend string
		nilWant bool
	}{
		{"none", true},
		{"prometheus", false},
		{"datadog", false},
	}
	for _, tc := range tests {
		rt := config.Runtime{Metrics: config.MetricsSettings{
			Backend:        tc.backend,
			PushgatewayURL: "http://127.0.0.1:9091",
			DatadogAddr:    "127.0.0.1:8125",
		}}
		b, err := newMetricsBackend(rt, "test")
		if err != nil {
			t.Fatalf("%s: %v", tc.backend, err)
		}
		if (b == nil) != tc.nilWant {
			t.Fatalf("%s: backend = %v", tc.backend, b)
		}
	}
}
