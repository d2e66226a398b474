// API server entry point for PersonaQuiz.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/PersonaQuiz/internal/application/export"
	"github.com/turtacn/PersonaQuiz/internal/application/questions"
	"github.com/turtacn/PersonaQuiz/internal/application/submission"
	"github.com/turtacn/PersonaQuiz/internal/config"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/postgres"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/redis"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/storage/minio"
	httpserver "github.com/turtacn/PersonaQuiz/internal/interfaces/http"
	"github.com/turtacn/PersonaQuiz/internal/interfaces/http/handlers"
	"github.com/turtacn/PersonaQuiz/internal/interfaces/http/middleware"
)

const eventSource = "personaquiz-apiserver"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	logger, level, err := logging.NewLeveledLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Only the log level is applied live; other edits need a restart.
	if *configPath != "" {
		err := config.Watch(*configPath, func(c *config.Config) {
			level.SetLevel(logging.ParseLevel(c.Log.Level))
			logger.Info("configuration reloaded", logging.String("log_level", c.Log.Level))
		}, func(err error) {
			logger.Warn("ignoring invalid configuration change", logging.Err(err))
		})
		if err != nil {
			logger.Warn("configuration watch disabled", logging.Err(err))
		}
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("API server exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	logger.Info("starting PersonaQuiz API server",
		logging.String("version", config.Version),
		logging.String("addr", cfg.Server.Addr()),
	)
	gin.SetMode(cfg.Server.Mode)

	collector := prometheus.NewNopCollector()
	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(cfg.Metrics.Collector(), logger)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		collector = c
	}
	metrics := prometheus.NewAppMetrics(collector)

	// --- PostgreSQL ---
	conn, err := postgres.NewConnection(cfg.Database.Postgres(), logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer conn.Close()
	if cfg.Database.AutoMigrate {
		if err := conn.RunMigrations(); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
	}
	questionRepo := repositories.NewQuestionRepo(conn, logger, metrics)
	resultRepo := repositories.NewResultRepo(conn, logger, metrics)

	// --- Redis ---
	rdb, err := redis.NewClient(cfg.Redis.Client(), logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()
	cache, progress := newRedisStores(rdb, cfg, logger)

	// Seeded sets served through the cache; the bundled sets back them up.
	bundled, err := questions.NewBundled()
	if err != nil {
		return fmt.Errorf("bundled questions: %w", err)
	}
	provider := questions.NewProvider(bundled,
		questions.WithRemote(questions.NewCachedSource(questionRepo, cache, logger, metrics)),
		questions.WithTimeout(cfg.Quiz.RemoteTimeout),
		questions.WithLogger(logger),
		questions.WithMetrics(metrics),
	)

	// --- Kafka ---
	var publisher submission.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Producer(), logger, metrics)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()
		ensureTopics(cfg, logger)
		publisher = kafka.NewResultPublisher(producer, eventSource)
	}

	submissions := submission.NewService(progress, resultRepo, publisher, provider,
		submission.Config{FreshnessWindow: cfg.Quiz.FreshnessWindow}, logger, metrics)

	checkers := []handlers.HealthChecker{
		&postgresHealthAdapter{conn: conn},
		&redisHealthAdapter{client: rdb},
	}
	if cfg.Kafka.Enabled {
		checkers = append(checkers, &kafkaHealthAdapter{brokers: cfg.Kafka.Brokers, topic: cfg.Kafka.ResultTopic})
	}

	// --- MinIO ---
	var exporter handlers.Exporter
	if cfg.MinIO.Enabled {
		store, err := minio.NewMinIOClient(cfg.MinIO.Storage(), logger)
		if err != nil {
			return fmt.Errorf("minio: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = store.EnsureBucket(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("minio bucket: %w", err)
		}
		exporter = export.NewService(resultRepo, minio.NewMinIORepository(store, logger),
			export.WithLocker(redis.NewLocker(rdb, logger)),
			export.WithURLExpiry(cfg.MinIO.PresignExpiry),
			export.WithLogger(logger),
			export.WithMetrics(metrics),
		)
		checkers = append(checkers, &minioHealthAdapter{client: store})
	}

	var limiter middleware.RateLimiter
	limitCfg := middleware.DefaultRateLimitConfig()
	if cfg.Server.RateLimitRPS > 0 {
		bucket := middleware.NewTokenBucketLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, 5*time.Minute)
		defer bucket.Stop()
		limiter = bucket
		limitCfg.RequestsPerSecond = cfg.Server.RateLimitRPS
		limitCfg.BurstSize = cfg.Server.RateLimitBurst
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		cors.AllowedOrigins = cfg.Server.AllowedOrigins
	}
	logCfg := middleware.DefaultLoggingConfig()
	logCfg.SlowThreshold = cfg.Server.SlowThreshold

	routerCfg := httpserver.RouterConfig{
		QuestionHandler: handlers.NewQuestionHandler(provider, logger),
		ResultHandler:   handlers.NewResultHandler(submissions, exporter),
		HealthHandler:   handlers.NewHealthHandler(config.Version, metrics, checkers...),
		ExportEnabled:   exporter != nil,
		CORS:            cors,
		Logging:         logCfg,
		RateLimiter:     limiter,
		RateLimitConfig: limitCfg,
		Logger:          logger,
		Metrics:         metrics,
		MetricsPath:     cfg.Metrics.Path,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsCollector = collector
	}
	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logging.String("addr", srv.Addr()))
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down server", logging.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultServerShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

// newRedisStores builds the question cache and the progress store under the
// configured key prefix.
func newRedisStores(rdb *redis.Client, cfg *config.Config, logger logging.Logger) (redis.Cache, *redis.ProgressStore) {
	cache := redis.NewQuestionCache(rdb, logger, cfg.Redis.KeyPrefix, cfg.Redis.QuestionTTL)
	progress := redis.NewProgressStore(rdb, cfg.Redis.KeyPrefix, cfg.Quiz.FreshnessWindow, logger)
	return cache, progress
}

// ensureTopics creates the result and dead-letter topics. Brokers with
// auto-creation enabled make failures here non-fatal.
func ensureTopics(cfg *config.Config, logger logging.Logger) {
	tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
	if err != nil {
		logger.Warn("Kafka topic manager unavailable", logging.Err(err))
		return
	}
	defer tm.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := tm.EnsureDefaultTopics(ctx); err != nil {
		logger.Warn("Failed to ensure Kafka topics", logging.Err(err))
	}
}
