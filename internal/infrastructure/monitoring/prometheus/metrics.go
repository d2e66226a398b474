package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the services record.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPResponseSize    HistogramVec
	HTTPActiveRequests  GaugeVec

	// Quiz
	QuestionLoadsTotal    CounterVec
	QuestionLoadDuration  HistogramVec
	ProgressSavesTotal    CounterVec
	ResultsCompletedTotal CounterVec
	SessionResumesTotal   CounterVec
	RemoteFallbacksTotal  CounterVec
	ExportsTotal          CounterVec
	ExportDuration        HistogramVec

	// Infrastructure
	DBQueryDuration        HistogramVec
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	MessagesPublishedTotal CounterVec
	MessageProcessDuration HistogramVec

	// Health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultExportDurationBuckets = []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30}
	DefaultSizeBuckets           = []float64{100, 1000, 10000, 100000, 1000000, 10000000}
	DefaultDBDurationBuckets     = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPResponseSize = collector.RegisterHistogram("http_response_size_bytes", "HTTP response size", DefaultSizeBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.QuestionLoadsTotal = collector.RegisterCounter("question_loads_total", "Question set loads by source", "test_type", "source")
	m.QuestionLoadDuration = collector.RegisterHistogram("question_load_duration_seconds", "Question set load duration", DefaultHTTPDurationBuckets, "source")
	m.ProgressSavesTotal = collector.RegisterCounter("progress_saves_total", "Progress snapshot saves", "test_type", "target")
	m.ResultsCompletedTotal = collector.RegisterCounter("results_completed_total", "Completed test results", "test_type", "profile")
	m.SessionResumesTotal = collector.RegisterCounter("session_resumes_total", "Session resume attempts by outcome", "test_type", "outcome")
	m.RemoteFallbacksTotal = collector.RegisterCounter("remote_fallbacks_total", "Remote calls that fell back to a local source", "operation")
	m.ExportsTotal = collector.RegisterCounter("exports_total", "PDF exports", "test_type", "status")
	m.ExportDuration = collector.RegisterHistogram("export_duration_seconds", "PDF render and upload duration", DefaultExportDurationBuckets, "test_type")

	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "db", "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.MessagesPublishedTotal = collector.RegisterCounter("messages_published_total", "Messages published", "topic", "status")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultHTTPDurationBuckets, "topic")

	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type")

	return m
}

// NewNopMetrics returns metrics that record nothing.
func NewNopMetrics() *AppMetrics { return NewAppMetrics(NewNopCollector()) }

func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration, respSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	if respSize >= 0 {
		m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
	}
}

func RecordQuestionLoad(m *AppMetrics, testType, source string, duration time.Duration) {
	m.QuestionLoadsTotal.WithLabelValues(testType, source).Inc()
	m.QuestionLoadDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func RecordRemoteFallback(m *AppMetrics, operation string) {
	m.RemoteFallbacksTotal.WithLabelValues(operation).Inc()
}

func RecordResultCompleted(m *AppMetrics, testType, profile string) {
	if profile == "" {
		profile = "none"
	}
	m.ResultsCompletedTotal.WithLabelValues(testType, profile).Inc()
}

func RecordExport(m *AppMetrics, testType string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.ExportsTotal.WithLabelValues(testType, status).Inc()
	m.ExportDuration.WithLabelValues(testType).Observe(duration.Seconds())
}

func RecordDBQuery(m *AppMetrics, db, operation string, duration time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(db, operation).Observe(duration.Seconds())
	if err != nil {
		m.ErrorsTotal.WithLabelValues(db, "query_error").Inc()
	}
}

func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

func RecordPublish(m *AppMetrics, topic string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.MessagesPublishedTotal.WithLabelValues(topic, status).Inc()
}

func RecordHealth(m *AppMetrics, component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

func RecordError(m *AppMetrics, component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
