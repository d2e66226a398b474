// Export worker entry point for PersonaQuiz. It consumes result-completed
// events and prerenders each result's PDF so that later exports only presign.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/PersonaQuiz/internal/application/export"
	"github.com/turtacn/PersonaQuiz/internal/config"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/postgres"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/redis"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/storage/minio"
	apperrors "github.com/turtacn/PersonaQuiz/pkg/errors"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	workerCount := flag.Int("workers", 0, "number of concurrent consumers (overrides config)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *workerCount > 0 {
		cfg.Worker.Concurrency = *workerCount
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("worker stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	if !cfg.Kafka.Enabled {
		return errors.New("kafka is disabled; the worker has nothing to consume")
	}
	if !cfg.MinIO.Enabled {
		return errors.New("minio is disabled; the worker has nowhere to store exports")
	}
	logger.Info("starting PersonaQuiz worker",
		logging.String("version", config.Version),
		logging.Int("consumers", cfg.Worker.Concurrency),
		logging.String("topic", cfg.Kafka.ResultTopic),
	)

	collector := prometheus.NewNopCollector()
	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(cfg.Metrics.Collector(), logger)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		collector = c
	}
	metrics := prometheus.NewAppMetrics(collector)

	conn, err := postgres.NewConnection(cfg.Database.Postgres(), logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer conn.Close()

	rdb, err := redis.NewClient(cfg.Redis.Client(), logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	store, err := minio.NewMinIOClient(cfg.MinIO.Storage(), logger)
	if err != nil {
		return fmt.Errorf("minio: %w", err)
	}
	bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = store.EnsureBucket(bucketCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("minio bucket: %w", err)
	}

	exporter := export.NewService(
		repositories.NewResultRepo(conn, logger, metrics),
		minio.NewMinIORepository(store, logger),
		export.WithLocker(redis.NewLocker(rdb, logger)),
		export.WithLogger(logger),
		export.WithMetrics(metrics),
	)
	handle := prerenderHandler(exporter, cfg.Worker.HandlerTimeout, logger, metrics)

	// One reader per slot; the group spreads partitions across them.
	consumers := make([]*kafka.Consumer, 0, cfg.Worker.Concurrency)
	defer func() {
		for _, c := range consumers {
			if err := c.Close(); err != nil {
				logger.Warn("Failed to close consumer", logging.Err(err))
			}
		}
	}()
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		c, err := kafka.NewConsumer(cfg.Kafka.Consumer(), logger)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		c.Subscribe(cfg.Kafka.ResultTopic, handle)
		consumers = append(consumers, c)
	}

	health := newHealthServer(cfg, collector, map[string]func(context.Context) error{
		"postgres": conn.HealthCheck,
		"redis":    rdb.Ping,
		"minio":    store.HealthCheck,
		"kafka": func(ctx context.Context) error {
			return kafka.CheckBrokers(ctx, cfg.Kafka.Brokers, cfg.Kafka.ResultTopic)
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("health server listening", logging.String("addr", health.Addr))
		if err := health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultServerShutdownTimeout)
		defer cancel()
		return health.Shutdown(shutdownCtx)
	})
	for _, c := range consumers {
		c := c
		g.Go(func() error {
			if err := c.Start(gctx); err != nil {
				return err
			}
			c.Wait()
			return nil
		})
	}
	return g.Wait()
}

// prerenderer renders and stores a result's export ahead of the first request.
type prerenderer interface {
	Prerender(ctx context.Context, sessionID string, t quiz.TestType) error
}

// prerenderHandler renders the PDF of each completed result. Malformed events
// and results that no longer exist are dropped instead of retried.
func prerenderHandler(exporter prerenderer, timeout time.Duration, logger logging.Logger, metrics *prometheus.AppMetrics) kafka.MessageHandler {
	if metrics == nil {
		metrics = prometheus.NewNopMetrics()
	}
	return func(ctx context.Context, msg *kafka.Message) error {
		r, err := kafka.DecodeResultCompleted(msg)
		if err != nil {
			prometheus.RecordError(metrics, "worker", "malformed_event")
			logger.Warn("Dropping malformed result event",
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
			return nil
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		err = exporter.Prerender(ctx, r.SessionID, r.TestType)
		if apperrors.IsNotFound(err) {
			prometheus.RecordError(metrics, "worker", "result_missing")
			logger.Warn("Result vanished before export",
				logging.String("session_id", r.SessionID),
				logging.String("test_type", string(r.TestType)))
			return nil
		}
		if err != nil {
			prometheus.RecordError(metrics, "worker", string(apperrors.GetCode(err)))
			return err
		}
		logger.Info("Export prerendered",
			logging.String("session_id", r.SessionID),
			logging.String("test_type", string(r.TestType)),
			logging.Duration("duration", time.Since(start)))
		return nil
	}
}

// newHealthServer exposes /healthz, /readyz and the metrics endpoint.
func newHealthServer(cfg *config.Config, collector prometheus.MetricsCollector, checks map[string]func(context.Context) error) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, map[string]string{"status": "alive"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		status := http.StatusOK
		body := map[string]string{"status": "ready"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "not_ready"
				body[name] = err.Error()
			}
		}
		writeHealth(w, status, body)
	})
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, collector.Handler())
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.HealthPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func writeHealth(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
