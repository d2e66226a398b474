package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PersonaQuiz/internal/application/questions"
	"github.com/turtacn/PersonaQuiz/internal/config"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/redis"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := redis.NewClient(&redis.RedisConfig{Mode: "standalone", Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNewRedisStores_KeyLayout(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	ctx := context.Background()

	cache, progress := newRedisStores(rdb, cfg, logging.NewNopLogger())

	require.NoError(t, progress.Save(ctx, quiz.ProgressSnapshot{
		SessionID: "s1",
		TestType:  quiz.TestDISC,
		Language:  quiz.English,
		Timestamp: time.Now().UnixMilli(),
	}))
	assert.True(t, mr.Exists("pquiz:progress:s1:disc"))

	bundled, err := questions.NewBundled()
	require.NoError(t, err)
	served := questions.NewCachedSource(bundled, cache, nil, nil)
	_, err = served.Questions(ctx, quiz.TestDISC, quiz.English)
	require.NoError(t, err)
	assert.True(t, mr.Exists("pquiz:questions:disc"))
	assert.Len(t, mr.Keys(), 2)
}

func TestSeedInvalidation_DropsServedSet(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	ctx := context.Background()

	cache, _ := newRedisStores(rdb, cfg, logging.NewNopLogger())
	bundled, err := questions.NewBundled()
	require.NoError(t, err)
	_, err = questions.NewCachedSource(bundled, cache, nil, nil).Questions(ctx, quiz.TestMBTI, quiz.English)
	require.NoError(t, err)
	require.True(t, mr.Exists("pquiz:questions:mbti"))

	seedCache := redis.NewQuestionCache(rdb, logging.NewNopLogger(), cfg.Redis.KeyPrefix, cfg.Redis.QuestionTTL)
	require.NoError(t, questions.NewCachedSource(bundled, seedCache, nil, nil).Invalidate(ctx))
	assert.False(t, mr.Exists("pquiz:questions:mbti"))
}

func TestKafkaHealthAdapter(t *testing.T) {
	a := &kafkaHealthAdapter{brokers: []string{"127.0.0.1:1"}, topic: "quiz.result.completed"}
	assert.Equal(t, "kafka", a.Name())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, a.Check(ctx))
}
