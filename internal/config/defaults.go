package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerIdleTimeout     = 60 * time.Second
	DefaultServerMaxBodySize     = 1 << 20
	DefaultServerShutdownTimeout = 30 * time.Second
	DefaultServerSlowThreshold   = time.Second
	DefaultServerRateLimitBurst  = 40

	DefaultDBHost         = "localhost"
	DefaultDBPort         = 5432
	DefaultDBName         = "personaquiz"
	DefaultDBUser         = "personaquiz"
	DefaultDBSSLMode      = "disable"
	DefaultDBMaxOpenConns = 20
	DefaultDBMaxIdleConns = 5

	DefaultRedisAddr        = "localhost:6379"
	DefaultRedisKeyPrefix   = "pquiz:"
	DefaultRedisQuestionTTL = 10 * time.Minute

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaGroupID      = "personaquiz-export"
	DefaultKafkaResultTopic  = "quiz.result.completed"
	DefaultKafkaDLQSuffix    = ".dlq"
	DefaultKafkaWriteTimeout = 10 * time.Second
	DefaultKafkaMaxRetries   = 3

	DefaultMinIOEndpoint      = "localhost:9000"
	DefaultMinIOBucket        = "exports"
	DefaultMinIOPresignExpiry = time.Hour

	// DefaultRemoteTimeout bounds remote calls before falling back locally.
	DefaultRemoteTimeout = 5 * time.Second
	// DefaultFreshnessWindow is the resumable lifetime of a progress snapshot.
	DefaultFreshnessWindow = 3600000 * time.Millisecond
	DefaultLanguage        = "en"

	DefaultWorkerConcurrency    = 4
	DefaultWorkerHandlerTimeout = time.Minute
	DefaultWorkerHealthPort     = 8081

	DefaultMetricsNamespace = "personaquiz"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultLocalDBPath returns the SQLite path under the XDG data directory,
// falling back to ~/.local/share.
func DefaultLocalDBPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "personaquiz", "quiz.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "quiz.db"
	}
	return filepath.Join(home, ".local", "share", "personaquiz", "quiz.db")
}

// ApplyDefaults fills every zero-valued field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultServerIdleTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultServerMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.SlowThreshold == 0 {
		cfg.Server.SlowThreshold = DefaultServerSlowThreshold
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = DefaultServerRateLimitBurst
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultDBMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDBMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 5 * time.Minute
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.QuestionTTL == 0 {
		cfg.Redis.QuestionTTL = DefaultRedisQuestionTTL
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.ResultTopic == "" {
		cfg.Kafka.ResultTopic = DefaultKafkaResultTopic
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = cfg.Kafka.ResultTopic + DefaultKafkaDLQSuffix
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = DefaultKafkaWriteTimeout
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = DefaultKafkaMaxRetries
	}

	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = DefaultMinIOPresignExpiry
	}

	if cfg.Quiz.RemoteTimeout == 0 {
		cfg.Quiz.RemoteTimeout = DefaultRemoteTimeout
	}
	if cfg.Quiz.FreshnessWindow == 0 {
		cfg.Quiz.FreshnessWindow = DefaultFreshnessWindow
	}
	if cfg.Quiz.LocalDBPath == "" {
		cfg.Quiz.LocalDBPath = DefaultLocalDBPath()
	}
	if cfg.Quiz.DefaultLanguage == "" {
		cfg.Quiz.DefaultLanguage = DefaultLanguage
	}

	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.HandlerTimeout == 0 {
		cfg.Worker.HandlerTimeout = DefaultWorkerHandlerTimeout
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
