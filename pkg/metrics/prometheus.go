// Package metrics provides Prometheus metrics for the creditscope dashboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for scoring outcomes.
const (
	OutcomeSuccess = "success"
)

// Manager owns every collector exported by the dashboard.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Remote scoring
	scoringCalls   *prometheus.CounterVec
	scoringLatency *prometheus.HistogramVec
	decisions      *prometheus.CounterVec

	// Loaded state
	datasetRows      prometheus.Gauge
	explanationsRows prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before any handler reads GetRegistry.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	all := append(append([]Option{}, opts...), WithPrometheusRegistry(registry))
	globalManager = NewManager(all...)
	customRegistry = registry
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "creditscope",
		subsystem:        "dashboard",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.scoringCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scoring_calls_total",
		Help:        "Remote scoring calls by endpoint and outcome",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "outcome"})

	m.scoringLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scoring_latency_milliseconds",
		Help:        "Latency of remote scoring calls in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint"})

	m.decisions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "decisions_total",
		Help:        "Credit decisions returned by the model",
		ConstLabels: m.constLabels,
	}, []string{"decision"})

	m.datasetRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "dataset_rows",
		Help:        "Number of client rows loaded from the dataset",
		ConstLabels: m.constLabels,
	})

	m.explanationsRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "explanation_rows",
		Help:        "Number of clients with precomputed attributions",
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "HTTP error responses by endpoint and error type",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})
}

// RecordScoringCall records one remote call and its latency.
// outcome is OutcomeSuccess or the failure kind.
func (m *Manager) RecordScoringCall(endpoint, outcome string, latencyMs float64) {
	m.scoringCalls.WithLabelValues(endpoint, outcome).Inc()
	m.scoringLatency.WithLabelValues(endpoint).Observe(latencyMs)
}

// RecordDecision counts a decision label.
func (m *Manager) RecordDecision(decision string) {
	m.decisions.WithLabelValues(decision).Inc()
}

// SetDatasetRows sets the loaded dataset size.
func (m *Manager) SetDatasetRows(n int) {
	m.datasetRows.Set(float64(n))
}

// SetExplanationRows sets the number of clients with attributions.
func (m *Manager) SetExplanationRows(n int) {
	m.explanationsRows.Set(float64(n))
}

// RecordHTTPRequest records a served request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint counts an error response.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordScoringCall records a remote call on the global manager.
func RecordScoringCall(endpoint, outcome string, latencyMs float64) {
	globalManager.RecordScoringCall(endpoint, outcome, latencyMs)
}

// RecordDecision counts a decision on the global manager.
func RecordDecision(decision string) {
	globalManager.RecordDecision(decision)
}

// SetDatasetRows sets the dataset size on the global manager.
func SetDatasetRows(n int) {
	globalManager.SetDatasetRows(n)
}

// SetExplanationRows sets the attribution count on the global manager.
func SetExplanationRows(n int) {
	globalManager.SetExplanationRows(n)
}

// RecordHTTPRequest records a request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordErrorByEndpoint counts an error response on the global manager.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
