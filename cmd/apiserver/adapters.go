package main

import (
	"context"

	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/postgres"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/redis"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/storage/minio"
)

// Adapters for HealthHandler
type postgresHealthAdapter struct {
	conn *postgres.Connection
}

func (a *postgresHealthAdapter) Name() string {
	return "postgres"
}

func (a *postgresHealthAdapter) Check(ctx context.Context) error {
	return a.conn.HealthCheck(ctx)
}

type redisHealthAdapter struct {
	client *redis.Client
}

func (a *redisHealthAdapter) Name() string {
	return "redis"
}

func (a *redisHealthAdapter) Check(ctx context.Context) error {
	return a.client.Ping(ctx)
}

type minioHealthAdapter struct {
	client *minio.MinIOClient
}

func (a *minioHealthAdapter) Name() string {
	return "minio"
}

func (a *minioHealthAdapter) Check(ctx context.Context) error {
	return a.client.HealthCheck(ctx)
}

type kafkaHealthAdapter struct {
	brokers []string
	topic   string
}

func (a *kafkaHealthAdapter) Name() string {
	return "kafka"
}

func (a *kafkaHealthAdapter) Check(ctx context.Context) error {
	return kafka.CheckBrokers(ctx, a.brokers, a.topic)
}
