package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PersonaQuiz/internal/application/questions"
	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/interfaces/http/handlers"
	"github.com/turtacn/PersonaQuiz/internal/interfaces/http/middleware"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
	dto "github.com/turtacn/PersonaQuiz/pkg/types/quiz"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLoader struct{}

func (stubLoader) Load(_ context.Context, t quiz.TestType, lang quiz.Language) (*questions.Set, error) {
	return &questions.Set{Test: catalog.MustLookup(t), Language: lang, Source: questions.SourceBundled}, nil
}

type stubSubmissions struct{}

func (stubSubmissions) SaveProgress(context.Context, *dto.SaveProgressRequest, quiz.Language) error {
	return nil
}

func (stubSubmissions) GetProgress(context.Context, string, quiz.TestType) (*quiz.ProgressSnapshot, error) {
	return nil, errors.NotFound("progress not found")
}

func (stubSubmissions) SaveResult(context.Context, *dto.SaveResultRequest, quiz.Language) (*quiz.Result, error) {
	return nil, errors.InvalidParam("sessionId is required")
}

func (stubSubmissions) GetResult(context.Context, string, quiz.TestType) (*quiz.Result, error) {
	return nil, errors.NotFound("result not found")
}

type stubExporter struct{}

func (stubExporter) Export(_ context.Context, sid string, t quiz.TestType, lang quiz.Language) (*dto.ExportResponse, error) {
	return &dto.ExportResponse{URL: "http://objects/" + sid, ObjectKey: "exports/" + string(t) + "/" + sid + "-" + string(lang) + ".pdf"}, nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(string) (bool, middleware.RateLimitInfo) {
	return false, middleware.RateLimitInfo{Limit: 1, ResetAt: time.Now().Add(time.Second)}
}

func newTestRouter(mutate func(*RouterConfig)) *gin.Engine {
	cfg := RouterConfig{
		QuestionHandler: handlers.NewQuestionHandler(stubLoader{}, nil),
		ResultHandler:   handlers.NewResultHandler(stubSubmissions{}, stubExporter{}),
		HealthHandler:   handlers.NewHealthHandler("test", nil),
		CORS:            middleware.DefaultCORSConfig(),
		Logging:         middleware.DefaultLoggingConfig(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewRouter(cfg)
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter_HealthEndpoints(t *testing.T) {
	r := newTestRouter(nil)
	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		rec := serve(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestNewRouter_RequestIDOnEveryResponse(t *testing.T) {
	r := newTestRouter(nil)
	rec := serve(r, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
}

func TestNewRouter_ListTests(t *testing.T) {
	r := newTestRouter(nil)
	rec := serve(r, http.MethodGet, "/tests?lang=es", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var tests []dto.TestInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tests))
	assert.Len(t, tests, len(catalog.All()))
}

func TestNewRouter_UnknownTestType(t *testing.T) {
	r := newTestRouter(nil)
	rec := serve(r, http.MethodGet, "/questions/enneagram", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(errors.ErrCodeUnknownTestType), body.Code)
	assert.Equal(t, "enneagram", body.Detail)
}

func TestNewRouter_ResultRoutes(t *testing.T) {
	r := newTestRouter(nil)

	rec := serve(r, http.MethodGet, "/results/s-1/disc", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(r, http.MethodGet, "/progress/s-1/mbti", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(r, http.MethodPost, "/save-result", `{"testType":"disc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewRouter_ExportRoute(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		r := newTestRouter(func(c *RouterConfig) { c.ExportEnabled = true })
		rec := serve(r, http.MethodPost, "/results/s-1/disc/export?lang=pt", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp dto.ExportResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "exports/disc/s-1-pt.pdf", resp.ObjectKey)
	})

	t.Run("disabled", func(t *testing.T) {
		r := newTestRouter(nil)
		rec := serve(r, http.MethodPost, "/results/s-1/disc/export", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestNewRouter_MethodNotAllowed(t *testing.T) {
	r := newTestRouter(nil)
	rec := serve(r, http.MethodDelete, "/save-result", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNewRouter_RateLimitSkipsProbes(t *testing.T) {
	r := newTestRouter(func(c *RouterConfig) {
		c.RateLimiter = denyLimiter{}
		c.RateLimitConfig = middleware.DefaultRateLimitConfig()
	})

	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/tests", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", "").Code)
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	r := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodOptions, "/save-result", nil)
	req.Header.Set("Origin", "https://quiz.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_NilHandlers_NoPanic(t *testing.T) {
	r := NewRouter(RouterConfig{})
	assert.NotPanics(t, func() {
		rec := serve(r, http.MethodGet, "/tests", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
