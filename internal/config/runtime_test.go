package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeRuntime(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scout.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadRuntime_Defaults runs with no file on the search path.
func TestLoadRuntime_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	rt, err := LoadRuntime("")
	if err != nil {
		t.Fatalf("LoadRuntime: %v", err)
	}
	if rt.Engine.Workers != runtime.GOMAXPROCS(0) || rt.Engine.ParallelThreshold != 10_000 {
		t.Fatalf("engine = %+v", rt.Engine)
	}
	if rt.Sampling.MaxBytes != 2_000_000 || rt.Sampling.MaxRows != 200 {
		t.Fatalf("sampling = %+v", rt.Sampling)
	}
	if rt.Metrics.Backend != "none" || rt.HTTP.Timeout != 30*time.Second || rt.HTTP.MaxRetries != 3 {
		t.Fatalf("runtime = %+v", rt)
	}
}

func TestLoadRuntime_FileAndEnv(t *testing.T) {
	path := writeRuntime(t, `
engine:
  workers: 2
sampling:
  max_rows: 50
metrics:
  backend: Prometheus
  pushgateway_url: http://gateway:9091
http:
  timeout: 5s
`)
	t.Setenv("SCOUT_SAMPLING_MAX_ROWS", "75")
	t.Setenv("SCOUT_ENGINE_PARALLEL_THRESHOLD", "500")

	rt, err := LoadRuntime(path)
	if err != nil {
		t.Fatalf("LoadRuntime: %v", err)
	}
	if rt.Engine.Workers != 2 || rt.Engine.ParallelThreshold != 500 {
		t.Fatalf("engine = %+v", rt.Engine)
	}
	if rt.Sampling.MaxRows != 75 || rt.Sampling.MaxBytes != 2_000_000 {
		t.Fatalf("sampling = %+v", rt.Sampling)
	}
	if rt.Metrics.Backend != "prometheus" || rt.Metrics.PushgatewayURL != "http://gateway:9091" {
		t.Fatalf("metrics = %+v", rt.Metrics)
	}
	if rt.HTTP.Timeout != 5*time.Second {
		t.Fatalf("http = %+v", rt.HTTP)
	}
}

func TestLoadRuntime_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"workers", "engine:\n  workers: 0\n", "engine.workers"},
		{"rows", "sampling:\n  max_rows: -1\n", "sampling limits"},
		{"unknown backend", "metrics:\n  backend: statsd\n", `"statsd"`},
		{"prometheus without url", "metrics:\n  backend: prometheus\n", "pushgateway_url"},
		{"datadog without addr", "metrics:\n  backend: datadog\n", "datadog_addr"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadRuntime(writeRuntime(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want it to mention %s", err, tc.want)
			}
		})
	}
}

func TestLoadRuntime_MissingExplicitFile(t *testing.T) {
	if _, err := LoadRuntime(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing explicit file")
	}
}
