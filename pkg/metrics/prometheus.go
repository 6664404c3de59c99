package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes.
const (
	RefreshFetched = "fetched"
	RefreshFresh   = "fresh"
	RefreshFailed  = "failed"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Refresh pipeline
	refreshRuns     *prometheus.CounterVec
	fetchLatency    prometheus.Histogram
	fetchBytes      prometheus.Histogram
	archiveDumps    prometheus.Counter
	refreshLastUnix prometheus.Gauge

	// Snapshot state
	snapshotRecords      prometheus.Gauge
	snapshotApplicants   prometheus.Gauge
	snapshotCapturedUnix prometheus.Gauge

	// Aggregation
	assembleLatency  prometheus.Histogram
	viewCacheHits    prometheus.Counter
	viewCacheMisses  prometheus.Counter
	unmatchedRegions prometheus.Gauge
	missingCapacity  prometheus.Gauge
	taxonomyErrors   prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "admstats",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.refreshRuns = auto.NewCounterVec(
		m.counterOpts("refresh_runs_total", "Refresh runs by outcome"),
		[]string{"outcome"},
	)
	m.fetchLatency = auto.NewHistogram(m.histogramOpts(
		"fetch_latency_milliseconds", "Upstream fetch latency in milliseconds",
		[]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	))
	m.fetchBytes = auto.NewHistogram(m.histogramOpts(
		"fetch_response_bytes", "Size of upstream responses in bytes",
		prometheus.ExponentialBuckets(1024, 4, 10),
	))
	m.archiveDumps = auto.NewCounter(m.counterOpts("archive_dumps_total", "Snapshots written to the dump archive"))
	m.refreshLastUnix = auto.NewGauge(m.gaugeOpts("refresh_last_unix", "Unix time of the last successful refresh"))

	m.snapshotRecords = auto.NewGauge(m.gaugeOpts("snapshot_records", "Application records in the current snapshot"))
	m.snapshotApplicants = auto.NewGauge(m.gaugeOpts("snapshot_applicants", "Distinct applicants in the current snapshot"))
	m.snapshotCapturedUnix = auto.NewGauge(m.gaugeOpts("snapshot_captured_unix", "Capture time of the current snapshot"))

	m.assembleLatency = auto.NewHistogram(m.histogramOpts(
		"assemble_latency_milliseconds", "Time to aggregate a snapshot into the main page",
		m.histogramBuckets,
	))
	m.viewCacheHits = auto.NewCounter(m.counterOpts("view_cache_hits_total", "Main page requests served from cache"))
	m.viewCacheMisses = auto.NewCounter(m.counterOpts("view_cache_misses_total", "Main page requests that recomputed the view"))
	m.unmatchedRegions = auto.NewGauge(m.gaugeOpts("unmatched_regions", "Applicants whose region did not resolve in the last view"))
	m.missingCapacity = auto.NewGauge(m.gaugeOpts("missing_quota_capacity", "Ranked quotas without capacity in the last view"))
	m.taxonomyErrors = auto.NewCounter(m.counterOpts("taxonomy_errors_total", "Aggregation passes aborted by an unknown label"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordRefresh counts a refresh run with the given outcome.
func RecordRefresh(outcome string) {
	globalManager.refreshRuns.WithLabelValues(outcome).Inc()
}

// RecordFetchLatency records upstream fetch latency.
func RecordFetchLatency(latencyMs float64) {
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordFetchBytes records the size of an upstream response.
func RecordFetchBytes(n int) {
	globalManager.fetchBytes.Observe(float64(n))
}

// RecordArchiveDump counts a dump written to the archive.
func RecordArchiveDump() {
	globalManager.archiveDumps.Inc()
}

// UpdateRefreshLastUnix sets the time of the last successful refresh.
func UpdateRefreshLastUnix(unix int64) {
	globalManager.refreshLastUnix.Set(float64(unix))
}

// UpdateSnapshot publishes the size and capture time of the current snapshot.
func UpdateSnapshot(records, applicants int, capturedUnix int64) {
	globalManager.snapshotRecords.Set(float64(records))
	globalManager.snapshotApplicants.Set(float64(applicants))
	globalManager.snapshotCapturedUnix.Set(float64(capturedUnix))
}

// RecordAssembleLatency records the time to build the main page.
func RecordAssembleLatency(latencyMs float64) {
	globalManager.assembleLatency.Observe(latencyMs)
}

// RecordViewCacheHit counts a cached main page response.
func RecordViewCacheHit() {
	globalManager.viewCacheHits.Inc()
}

// RecordViewCacheMiss counts a recomputed main page.
func RecordViewCacheMiss() {
	globalManager.viewCacheMisses.Inc()
}

// UpdateViewDiagnostics publishes the non-fatal findings of the last view.
func UpdateViewDiagnostics(unmatchedRegions, missingCapacity int) {
	globalManager.unmatchedRegions.Set(float64(unmatchedRegions))
	globalManager.missingCapacity.Set(float64(missingCapacity))
}

// RecordTaxonomyError counts a pass aborted by an unknown label.
func RecordTaxonomyError() {
	globalManager.taxonomyErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
