// Package config defines the dashboard configuration and its loader.
//
// Values are layered defaults -> optional YAML file -> environment, see Load.
package config

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
)

// metricName is the Prometheus name and label grammar without colons.
var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Gauge band edges that the decision threshold must sit above.
const (
	minGaugeThreshold = 45
	maxGaugeThreshold = 100
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8501".
	Addr string `koanf:"addr"`

	// DatasetPath points at the client CSV (one row per SK_ID_CURR).
	DatasetPath string `koanf:"dataset_path"`

	// ExplanationsPath points at the exported attribution file (.json, .yaml).
	// Empty disables the explainability panels.
	ExplanationsPath string `koanf:"explanations_path"`

	Scoring ScoringConfig `koanf:"scoring"`
	Gauge   GaugeConfig   `koanf:"gauge"`
	Explain ExplainConfig `koanf:"explain"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// ScoringConfig configures the remote prediction service.
type ScoringConfig struct {
	// BaseURL is the service root; /predict/ and /predict_proba/ are appended.
	BaseURL string `koanf:"base_url"`

	// Timeout bounds each remote call.
	Timeout time.Duration `koanf:"timeout"`
}

// GaugeConfig configures the probability gauge.
type GaugeConfig struct {
	// Threshold is the decision boundary in percent shown on the gauge.
	Threshold float64 `koanf:"threshold"`
}

// ExplainConfig configures the attribution views.
type ExplainConfig struct {
	// MaxDisplay caps the waterfall steps; 0 shows every feature.
	MaxDisplay int `koanf:"max_display"`
}

// MetricsConfig names the exported Prometheus series.
type MetricsConfig struct {
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`

	// LatencyBuckets are the histogram upper bounds in milliseconds.
	// Empty keeps the built-in buckets.
	LatencyBuckets []float64 `koanf:"latency_buckets"`

	// Labels are attached to every series, e.g. env: prod.
	Labels map[string]string `koanf:"labels"`
}

// New returns a Config populated with defaults. The context is accepted to
// follow the project convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Addr:        ":8501",
		DatasetPath: "test_df.csv",
		Scoring: ScoringConfig{
			BaseURL: "https://modelia.azurewebsites.net",
			Timeout: 10 * time.Second,
		},
		Gauge: GaugeConfig{
			Threshold: 52,
		},
		Metrics: MetricsConfig{
			Namespace: "creditscope",
			Subsystem: "dashboard",
		},
	}
}

// Validate checks the configuration for values the dashboard cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DatasetPath) == "":
		return fmt.Errorf("%w: dataset_path must not be empty", ErrInvalidConfig)
	case c.Scoring.Timeout <= 0:
		return fmt.Errorf("%w: scoring.timeout must be positive", ErrInvalidConfig)
	case c.Gauge.Threshold <= minGaugeThreshold || c.Gauge.Threshold > maxGaugeThreshold:
		return fmt.Errorf("%w: gauge.threshold must be in (%d, %d]", ErrInvalidConfig, minGaugeThreshold, maxGaugeThreshold)
	case c.Explain.MaxDisplay < 0:
		return fmt.Errorf("%w: explain.max_display must not be negative", ErrInvalidConfig)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	}

	u, err := url.Parse(c.Scoring.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: scoring.base_url must be an absolute http(s) URL", ErrInvalidConfig)
	}
	return c.Metrics.validate()
}

func (m MetricsConfig) validate() error {
	if !metricName.MatchString(m.Namespace) {
		return fmt.Errorf("%w: metrics.namespace %q is not a valid metric name", ErrInvalidConfig, m.Namespace)
	}
	if m.Subsystem != "" && !metricName.MatchString(m.Subsystem) {
		return fmt.Errorf("%w: metrics.subsystem %q is not a valid metric name", ErrInvalidConfig, m.Subsystem)
	}
	if !sort.Float64sAreSorted(m.LatencyBuckets) {
		return fmt.Errorf("%w: metrics.latency_buckets must be ascending", ErrInvalidConfig)
	}
	for name := range m.Labels {
		if !metricName.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: metrics.labels key %q is not a valid label name", ErrInvalidConfig, name)
		}
	}
	return nil
}
