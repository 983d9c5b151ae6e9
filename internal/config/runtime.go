package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Runtime holds the process-level settings of the scout CLI. Values come from
// an optional scout.yaml, then SCOUT_* environment variables, then defaults.
type Runtime struct {
	Engine   EngineSettings
	Sampling SamplingSettings
	Metrics  MetricsSettings
	HTTP     HTTPSettings
}

type EngineSettings struct {
	Workers           int
	ParallelThreshold int
}

type SamplingSettings struct {
	MaxBytes int
	MaxRows  int
}

// MetricsSettings selects a metrics backend. Backend is one of "none",
// "prometheus" or "datadog".
type MetricsSettings struct {
	Backend        string
	PushgatewayURL string
	DatadogAddr    string
}

type HTTPSettings struct {
	Timeout    time.Duration
	MaxRetries int
}

// Runtime keys and their defaults.
var runtimeDefaults = map[string]any{
	"engine.workers":            runtime.GOMAXPROCS(0),
	"engine.parallel_threshold": 10_000,
	"sampling.max_bytes":        2_000_000,
	"sampling.max_rows":         200,
	"metrics.backend":           "none",
	"metrics.pushgateway_url":   "",
	"metrics.datadog_addr":      "",
	"http.timeout":              30 * time.Second,
	"http.max_retries":          3,
}

// LoadRuntime reads the runtime settings. When path is empty, scout.yaml is
// looked up in the working directory and in $HOME/.config/scout; a missing
// file is not an error. An explicit path must exist.
func LoadRuntime(path string) (Runtime, error) {
	v := viper.New()
	for k, d := range runtimeDefaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("scout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/scout")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return Runtime{}, fmt.Errorf("runtime config: %w", err)
		}
	}

	rt := Runtime{
		Engine: EngineSettings{
			Workers:           v.GetInt("engine.workers"),
			ParallelThreshold: v.GetInt("engine.parallel_threshold"),
		},
		Sampling: SamplingSettings{
			MaxBytes: v.GetInt("sampling.max_bytes"),
			MaxRows:  v.GetInt("sampling.max_rows"),
		},
		Metrics: MetricsSettings{
			Backend:        strings.ToLower(strings.TrimSpace(v.GetString("metrics.backend"))),
			PushgatewayURL: v.GetString("metrics.pushgateway_url"),
			DatadogAddr:    v.GetString("metrics.datadog_addr"),
		},
		HTTP: HTTPSettings{
			Timeout:    v.GetDuration("http.timeout"),
			MaxRetries: v.GetInt("http.max_retries"),
		},
	}
	return rt, rt.validate()
}

func (rt Runtime) validate() error {
	if rt.Engine.Workers < 1 {
		return fmt.Errorf("runtime config: engine.workers must be >= 1, got %d", rt.Engine.Workers)
	}
	if rt.Sampling.MaxBytes < 1 || rt.Sampling.MaxRows < 1 {
		return fmt.Errorf("runtime config: sampling limits must be positive")
	}
	switch rt.Metrics.Backend {
	case "", "none":
	case "prometheus":
		if rt.Metrics.PushgatewayURL == "" {
			return fmt.Errorf("runtime config: metrics.pushgateway_url is required for the prometheus backend")
		}
	case "datadog":
		if rt.Metrics.DatadogAddr == "" {
			return fmt.Errorf("runtime config: metrics.datadog_addr is required for the datadog backend")
		}
	default:
		return fmt.Errorf("runtime config: unknown metrics backend %q", rt.Metrics.Backend)
	}
	return nil
}
