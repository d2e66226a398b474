package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PersonaQuiz/internal/interfaces/http/handlers"
	"github.com/turtacn/PersonaQuiz/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the route tree.
type RouterConfig struct {
	// Handlers
	QuestionHandler *handlers.QuestionHandler
	ResultHandler   *handlers.ResultHandler
	HealthHandler   *handlers.HealthHandler
	// ExportEnabled mounts the export route on ResultHandler.
	ExportEnabled bool

	// Middleware
	CORS            middleware.CORSConfig
	Logging         middleware.LoggingConfig
	RateLimiter     middleware.RateLimiter
	RateLimitConfig middleware.RateLimitConfig

	// Infrastructure
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.AppMetrics
	MetricsPath      string
}

// NewRouter constructs the gin engine serving the quiz API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// --- Global middleware (applied to every request) ---
	r.Use(middleware.RequestID(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// --- Probes and metrics (never rate limited) ---
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
		r.GET("/health", cfg.HealthHandler.Detailed)
	}
	if cfg.MetricsCollector != nil {
		r.GET(cfg.MetricsPath, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("")
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimitConfig))
	}
	registerQuestionRoutes(api, cfg.QuestionHandler)
	registerResultRoutes(api, cfg.ResultHandler, cfg.ExportEnabled)

	return r
}

// registerQuestionRoutes mounts the catalog and question set endpoints.
func registerQuestionRoutes(r *gin.RouterGroup, h *handlers.QuestionHandler) {
	if h == nil {
		return
	}
	r.GET("/tests", h.ListTests)
	r.GET("/questions/:testType", h.GetQuestions)
}

// registerResultRoutes mounts progress, result and export endpoints.
func registerResultRoutes(r *gin.RouterGroup, h *handlers.ResultHandler, export bool) {
	if h == nil {
		return
	}
	r.POST("/save-progress", h.SaveProgress)
	r.GET("/progress/:sessionId/:testType", h.GetProgress)
	r.POST("/save-result", h.SaveResult)

	results := r.Group("/results/:sessionId/:testType")
	results.GET("", h.GetResult)
	if export {
		results.POST("/export", h.Export)
	}
}
