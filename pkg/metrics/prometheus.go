// Package metrics provides Prometheus metrics for the intervue capture service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the capture service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Sampling Metrics - one series per sampling activity
	framesSampled       *prometheus.CounterVec
	estimatorFallbacks  *prometheus.CounterVec
	staleDrops          *prometheus.CounterVec
	audioLevel          prometheus.Gauge
	transcriptFragments *prometheus.CounterVec
	capabilityDegraded  *prometheus.CounterVec
	mediaChunks         prometheus.Counter

	// Session Lifecycle Metrics
	transitions    *prometheus.CounterVec
	activeSessions prometheus.Gauge
	responseTime   prometheus.Histogram

	// Backend Side-Channel Metrics
	telemetryResults  *prometheus.CounterVec
	telemetryLatency  prometheus.Histogram
	submissionResults *prometheus.CounterVec
	submissionLatency prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics - session event queues
	queueDepth             *prometheus.HistogramVec
	queueEnqueueRate       *prometheus.CounterVec
	queueDequeueRate       *prometheus.CounterVec
	queueEnqueueErrors     *prometheus.CounterVec
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics - event consumers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "intervue",
		subsystem:        "capture",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)
	latencyBuckets := []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

	m.framesSampled = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("frames_sampled_total"),
		Help:        "Signal frames produced per estimator variant",
		ConstLabels: labels,
	}, []string{"estimator"})

	m.estimatorFallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("estimator_fallbacks_total"),
		Help:        "Ticks where the native detector was bypassed for the simulated estimator",
		ConstLabels: labels,
	}, []string{"reason"})

	m.staleDrops = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stale_events_dropped_total"),
		Help:        "Sampling events discarded because the session had left the accepting state",
		ConstLabels: labels,
	}, []string{"event"})

	m.audioLevel = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("audio_level_percent"),
		Help:        "Most recent microphone level in percent",
		ConstLabels: labels,
	})

	m.transcriptFragments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("transcript_fragments_total"),
		Help:        "Speech recognition fragments by kind (final, interim)",
		ConstLabels: labels,
	}, []string{"kind"})

	m.capabilityDegraded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("capability_degraded_total"),
		Help:        "Optional device capabilities replaced by a fallback at session setup",
		ConstLabels: labels,
	}, []string{"capability"})

	m.mediaChunks = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("media_chunks_total"),
		Help:        "Recorded media chunks appended to sessions",
		ConstLabels: labels,
	})

	m.transitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("session_transitions_total"),
		Help:        "Recording state machine transitions",
		ConstLabels: labels,
	}, []string{"from", "to"})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("active_sessions"),
		Help:        "Sessions holding live device resources",
		ConstLabels: labels,
	})

	m.responseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("response_time_seconds"),
		Help:        "Answer latency between recording start and submit",
		Buckets:     []float64{5, 15, 30, 60, 90, 120, 180, 300, 600},
		ConstLabels: labels,
	})

	m.telemetryResults = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("telemetry_frames_total"),
		Help:        "Telemetry persistence attempts by result",
		ConstLabels: labels,
	}, []string{"result"})

	m.telemetryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("telemetry_latency_milliseconds"),
		Help:        "Telemetry ingestion round-trip in milliseconds",
		Buckets:     latencyBuckets,
		ConstLabels: labels,
	})

	m.submissionResults = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("submissions_total"),
		Help:        "Answer submissions by result",
		ConstLabels: labels,
	}, []string{"result"})

	m.submissionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("submission_latency_milliseconds"),
		Help:        "Answer submission round-trip in milliseconds",
		Buckets:     latencyBuckets,
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.queueDepth = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_depth"),
		Help:        "Queue depth observed after each enqueue",
		Buckets:     []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256, 512},
		ConstLabels: labels,
	}, []string{"queue"})

	m.queueEnqueueRate = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_enqueue_total"),
		Help:        "Total number of items enqueued",
		ConstLabels: labels,
	}, []string{"queue"})

	m.queueDequeueRate = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_dequeue_total"),
		Help:        "Total number of items dequeued",
		ConstLabels: labels,
	}, []string{"queue"})

	m.queueEnqueueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_enqueue_errors_total"),
		Help:        "Total number of rejected enqueues",
		ConstLabels: labels,
	}, []string{"queue"})

	m.queueProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_processing_latency_milliseconds"),
		Help:        "Time spent waiting to enqueue in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_active_count"),
		Help:        "Number of running event consumers",
		ConstLabels: labels,
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_processing_latency_milliseconds"),
		Help:        "Time spent handling a single item in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_errors_total"),
		Help:        "Items whose handler returned an error",
		ConstLabels: labels,
	})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_component_total"),
		Help:        "Errors by component and error type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_type_total"),
		Help:        "Errors by type and severity",
		ConstLabels: labels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "Errors by endpoint, method and error type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("error_latency_milliseconds"),
		Help:        "Latency of operations that ended in an error",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Sampling Metrics Functions.

// RecordFrameSampled counts a frame produced by the named estimator variant.
func RecordFrameSampled(estimator string) {
	globalManager.framesSampled.WithLabelValues(estimator).Inc()
}

// RecordEstimatorFallback counts a tick served by the simulated estimator.
func RecordEstimatorFallback(reason string) {
	globalManager.estimatorFallbacks.WithLabelValues(reason).Inc()
}

// RecordStaleDrop counts a sampling event discarded by the stale-frame policy.
func RecordStaleDrop(event string) {
	globalManager.staleDrops.WithLabelValues(event).Inc()
}

// UpdateAudioLevel sets the latest audio level percentage.
func UpdateAudioLevel(percent float64) {
	globalManager.audioLevel.Set(percent)
}

// RecordTranscriptFragment counts a transcript fragment of the given kind.
func RecordTranscriptFragment(kind string) {
	globalManager.transcriptFragments.WithLabelValues(kind).Inc()
}

// RecordCapabilityDegraded counts an optional capability falling back.
func RecordCapabilityDegraded(capability string) {
	globalManager.capabilityDegraded.WithLabelValues(capability).Inc()
}

// RecordMediaChunk counts a recorded media chunk.
func RecordMediaChunk() {
	globalManager.mediaChunks.Inc()
}

// Session Lifecycle Functions.

// RecordTransition counts a state machine transition.
func RecordTransition(from, to string) {
	globalManager.transitions.WithLabelValues(from, to).Inc()
}

// IncActiveSessions increments the active session gauge.
func IncActiveSessions() {
	globalManager.activeSessions.Inc()
}

// DecActiveSessions decrements the active session gauge.
func DecActiveSessions() {
	globalManager.activeSessions.Dec()
}

// RecordResponseTime observes an answer latency in seconds.
func RecordResponseTime(seconds float64) {
	globalManager.responseTime.Observe(seconds)
}

// Backend Side-Channel Functions.

// RecordTelemetryResult counts a telemetry persistence outcome.
func RecordTelemetryResult(result string) {
	globalManager.telemetryResults.WithLabelValues(result).Inc()
}

// RecordTelemetryLatency records a telemetry round-trip in milliseconds.
func RecordTelemetryLatency(latencyMs float64) {
	globalManager.telemetryLatency.Observe(latencyMs)
}

// RecordSubmissionResult counts an answer submission outcome.
func RecordSubmissionResult(result string) {
	globalManager.submissionResults.WithLabelValues(result).Inc()
}

// RecordSubmissionLatency records a submission round-trip in milliseconds.
func RecordSubmissionLatency(latencyMs float64) {
	globalManager.submissionLatency.Observe(latencyMs)
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

// RecordQueueDepth observes the depth of the named queue.
func RecordQueueDepth(queue string, depth int) {
	globalManager.queueDepth.WithLabelValues(queue).Observe(float64(depth))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue(queue string) {
	globalManager.queueEnqueueRate.WithLabelValues(queue).Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue(queue string) {
	globalManager.queueDequeueRate.WithLabelValues(queue).Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError(queue string) {
	globalManager.queueEnqueueErrors.WithLabelValues(queue).Inc()
}

// RecordQueueProcessingLatency records enqueue latency in milliseconds.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// AddWorkerActiveCount adjusts the running consumer gauge by delta.
func AddWorkerActiveCount(delta int) {
	globalManager.workerActiveCount.Add(float64(delta))
}

// RecordWorkerProcessingLatency records handler latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
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
