// Package metrics provides Prometheus metrics for the lead scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns the Prometheus collectors of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// Scoring
	leadsScored       prometheus.Counter
	scoringLatency    prometheus.Histogram
	scoringErrors     prometheus.Counter
	unknownCategories *prometheus.CounterVec

	// Export
	exportRows  *prometheus.CounterVec
	exportBytes *prometheus.CounterVec

	// Reference data
	datasetRows    prometheus.Gauge
	vocabularySize *prometheus.GaugeVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// DefaultLatencyBuckets are the millisecond buckets of the *_milliseconds
// latency histograms.
var DefaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // bucket layout

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
// Two managers on the same registry with the same namespace and subsystem
// panic on registration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "leadscore",
		subsystem:        "api",
		histogramBuckets: DefaultLatencyBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	httpLabels := []string{"endpoint", "method", "status_code"}

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		httpLabels,
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		httpLabels,
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.leadsScored = auto.NewCounter(m.counterOpts("leads_scored_total", "Total number of leads passed through the classifier"))
	m.scoringLatency = auto.NewHistogram(m.histogramOpts(
		"scoring_latency_milliseconds", "Latency of one batch prediction in milliseconds", m.histogramBuckets))
	m.scoringErrors = auto.NewCounter(m.counterOpts("scoring_errors_total", "Total number of failed batch predictions"))
	m.unknownCategories = auto.NewCounterVec(
		m.counterOpts("unknown_category_total", "Categorical values encoded as unknown, by attribute"),
		[]string{"attribute"},
	)

	m.exportRows = auto.NewCounterVec(
		m.counterOpts("export_rows_total", "Rows written by exports, by format"),
		[]string{"format"},
	)
	m.exportBytes = auto.NewCounterVec(
		m.counterOpts("export_bytes_total", "Bytes written by exports, by format"),
		[]string{"format"},
	)

	m.datasetRows = auto.NewGauge(m.gaugeOpts("dataset_rows", "Rows in the reference dataset"))
	m.vocabularySize = auto.NewGaugeVec(
		m.gaugeOpts("vocabulary_size", "Distinct known values per categorical attribute"),
		[]string{"attribute"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordLeadsScored adds n to the scored leads counter.
func RecordLeadsScored(n int) {
	if n > 0 {
		globalManager.leadsScored.Add(float64(n))
	}
}

// RecordScoringLatency records batch prediction latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordScoringError increments the scoring errors counter.
func RecordScoringError() {
	globalManager.scoringErrors.Inc()
}

// RecordUnknownCategories adds n unknown values seen for attribute.
func RecordUnknownCategories(attribute string, n int) {
	if n > 0 {
		globalManager.unknownCategories.WithLabelValues(attribute).Add(float64(n))
	}
}

// RecordExport records one export of rows serialized to size bytes.
func RecordExport(format string, rows, size int) {
	globalManager.exportRows.WithLabelValues(format).Add(float64(rows))
	globalManager.exportBytes.WithLabelValues(format).Add(float64(size))
}

// UpdateDatasetRows sets the reference dataset size.
func UpdateDatasetRows(n int) {
	globalManager.datasetRows.Set(float64(n))
}

// UpdateVocabularySize sets the number of known values for attribute.
func UpdateVocabularySize(attribute string, n int) {
	globalManager.vocabularySize.WithLabelValues(attribute).Set(float64(n))
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
