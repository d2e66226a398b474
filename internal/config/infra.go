package config

import (
	"time"

	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/postgres"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/redis"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/storage/minio"
)

// Postgres maps the database section onto the connection pool settings.
func (d DatabaseConfig) Postgres() postgres.PostgresConfig {
	return postgres.PostgresConfig{
		Host:            d.Host,
		Port:            d.Port,
		Database:        d.DBName,
		Username:        d.User,
		Password:        d.Password,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// Client maps the redis section onto a standalone client.
func (r RedisConfig) Client() *redis.RedisConfig {
	return &redis.RedisConfig{
		Mode:         "standalone",
		Addr:         r.Addr,
		Password:     r.Password,
		DB:           r.DB,
		PoolSize:     r.PoolSize,
		MinIdleConns: r.MinIdleConns,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
	}
}

// Storage maps the minio section onto the export bucket client.
func (m MinIOConfig) Storage() *minio.MinIOConfig {
	return &minio.MinIOConfig{
		Endpoint:        m.Endpoint,
		AccessKeyID:     m.AccessKey,
		SecretAccessKey: m.SecretKey,
		UseSSL:          m.UseSSL,
		Region:          m.Region,
		Bucket:          m.Bucket,
		PresignExpiry:   m.PresignExpiry,
	}
}

// Producer maps the kafka section onto the result event producer.
func (k KafkaConfig) Producer() kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      k.Brokers,
		Acks:         "all",
		MaxRetries:   k.MaxRetries,
		WriteTimeout: k.WriteTimeout,
	}
}

// Consumer maps the kafka section onto the worker's consumer group.
func (k KafkaConfig) Consumer() kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		Brokers:         k.Brokers,
		GroupID:         k.GroupID,
		Topics:          []string{k.ResultTopic},
		AutoOffsetReset: k.AutoOffsetReset,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      k.MaxRetries,
			RetryBackoff:    500 * time.Millisecond,
			MaxRetryBackoff: 10 * time.Second,
			DeadLetterTopic: k.DeadLetterTopic,
		},
	}
}

// Collector maps the metrics section onto the Prometheus registry settings.
func (m MetricsConfig) Collector() prometheus.CollectorConfig {
	return prometheus.CollectorConfig{
		Namespace:            m.Namespace,
		Subsystem:            m.Subsystem,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}
}
