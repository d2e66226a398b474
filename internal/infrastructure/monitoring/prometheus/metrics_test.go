package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	return NewAppMetrics(c), c
}

func TestNewAppMetrics_AllMetricsRegistered(t *testing.T) {
	m, _ := newTestAppMetrics(t)
	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.QuestionLoadsTotal)
	assert.NotNil(t, m.RemoteFallbacksTotal)
	assert.NotNil(t, m.ExportDuration)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordHTTPRequest(m, "GET", "/questions/:testType", 200, 100*time.Millisecond, 2048)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="GET",path="/questions/:testType",status_code="200"} 1`)
	assert.Contains(t, out, `test_unit_http_response_size_bytes_sum{method="GET",path="/questions/:testType"} 2048`)
	assert.Contains(t, out, `test_unit_http_request_duration_seconds_count{method="GET",path="/questions/:testType"} 1`)
}

func TestRecordQuestionLoadAndFallback(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordQuestionLoad(m, "disc", "bundled", 3*time.Millisecond)
	RecordRemoteFallback(m, "questions")
	RecordRemoteFallback(m, "questions")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_question_loads_total{source="bundled",test_type="disc"} 1`)
	assert.Contains(t, out, `test_unit_remote_fallbacks_total{operation="questions"} 2`)
}

func TestRecordResultCompleted_BigFiveHasNoProfile(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordResultCompleted(m, "bigfive", "")
	RecordResultCompleted(m, "disc", "DI")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_results_completed_total{profile="none",test_type="bigfive"} 1`)
	assert.Contains(t, out, `test_unit_results_completed_total{profile="DI",test_type="disc"} 1`)
}

func TestRecordExportAndPublish(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordExport(m, "mbti", time.Second, nil)
	RecordExport(m, "mbti", time.Second, errors.New("render"))
	RecordPublish(m, "quiz.result.completed", nil)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_exports_total{status="success",test_type="mbti"} 1`)
	assert.Contains(t, out, `test_unit_exports_total{status="failure",test_type="mbti"} 1`)
	assert.Contains(t, out, `test_unit_messages_published_total{status="success",topic="quiz.result.completed"} 1`)
}

func TestRecordDBQueryCacheAndHealth(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordDBQuery(m, "postgres", "save_result", 10*time.Millisecond, errors.New("boom"))
	RecordCacheAccess(m, "questions", true)
	RecordCacheAccess(m, "questions", false)
	RecordHealth(m, "redis", true)
	RecordError(m, "http", "panic")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_errors_total{component="postgres",error_type="query_error"} 1`)
	assert.Contains(t, out, `test_unit_cache_hits_total{cache="questions"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{cache="questions"} 1`)
	assert.Contains(t, out, `test_unit_health_check_status{component="redis"} 1`)
	assert.Contains(t, out, `test_unit_errors_total{component="http",error_type="panic"} 1`)
}

func TestNopMetrics(t *testing.T) {
	m := NewNopMetrics()
	assert.NotPanics(t, func() {
		RecordHTTPRequest(m, "GET", "/", 200, time.Millisecond, 1)
		RecordExport(m, "disc", time.Millisecond, nil)
	})
}
