package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
)

type mockKafkaConn struct {
	createFunc func(topics ...kafka.TopicConfig) error
	readFunc   func(topics ...string) ([]kafka.Partition, error)
}

func (m *mockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if m.createFunc != nil {
		return m.createFunc(topics...)
	}
	return nil
}

func (m *mockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.readFunc != nil {
		return m.readFunc(topics...)
	}
	return nil, nil
}

func (m *mockKafkaConn) Close() error { return nil }

func newTestTopicManager(conn ConnInterface) *TopicManager {
	return &TopicManager{conn: conn, logger: logging.NewNopLogger()}
}

func TestDefaultTopics(t *testing.T) {
	topics := DefaultTopics()
	require.Len(t, topics, 2)
	assert.Equal(t, "quiz.result.completed", topics[0].Name)
	assert.Equal(t, "quiz.result.completed.dlq", topics[1].Name)
}

func TestCreateTopic(t *testing.T) {
	conn := &mockKafkaConn{createFunc: func(topics ...kafka.TopicConfig) error {
		require.Len(t, topics, 1)
		assert.Equal(t, "test", topics[0].Topic)
		assert.Equal(t, "retention.ms", topics[0].ConfigEntries[0].ConfigName)
		return nil
	}}
	m := newTestTopicManager(conn)

	assert.NoError(t, m.CreateTopic(context.Background(), TopicConfig{Name: "test", NumPartitions: 1, ReplicationFactor: 1, RetentionMs: 1000}))
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{Name: "test"}))
}

func TestCreateTopic_ExistingIsNotAnError(t *testing.T) {
	conn := &mockKafkaConn{
		createFunc: func(...kafka.TopicConfig) error { return errors.New("[36] Topic Already Exists") },
		readFunc: func(...string) ([]kafka.Partition, error) {
			return []kafka.Partition{{Topic: "test"}}, nil
		},
	}
	m := newTestTopicManager(conn)
	assert.NoError(t, m.CreateTopic(context.Background(), TopicConfig{Name: "test", NumPartitions: 1, ReplicationFactor: 1}))
}

type capturePublisher struct{ msg *ProducerMessage }

func (c *capturePublisher) Publish(_ context.Context, msg *ProducerMessage) error {
	c.msg = msg
	return nil
}

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()

	ok := newTestTopicManager(&mockKafkaConn{readFunc: func(topics ...string) ([]kafka.Partition, error) {
		assert.Equal(t, []string{TopicResultCompleted}, topics)
		return []kafka.Partition{{Topic: TopicResultCompleted, ID: 0}}, nil
	}})
	assert.NoError(t, ok.HealthCheck(ctx, TopicResultCompleted))

	empty := newTestTopicManager(&mockKafkaConn{})
	assert.Error(t, empty.HealthCheck(ctx, TopicResultCompleted))

	down := newTestTopicManager(&mockKafkaConn{readFunc: func(...string) ([]kafka.Partition, error) {
		return nil, errors.New("broken pipe")
	}})
	err := down.HealthCheck(ctx, TopicResultCompleted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestCheckBrokers_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, CheckBrokers(ctx, nil, TopicResultCompleted))
	assert.Error(t, CheckBrokers(ctx, []string{"127.0.0.1:1"}, TopicResultCompleted))
}

func TestResultPublisher_RoundTrip(t *testing.T) {
	done := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	res := quiz.Result{
		SessionID:   "s-1",
		TestType:    quiz.TestMBTI,
		Language:    quiz.Spanish,
		Scores:      quiz.ScoreVector{"E": 3, "I": 1},
		ProfileKey:  "ENTJ",
		CompletedAt: done,
	}
	capture := &capturePublisher{}
	require.NoError(t, NewResultPublisher(capture, "apiserver").PublishResultCompleted(context.Background(), res))

	msg := capture.msg
	require.NotNil(t, msg)
	assert.Equal(t, TopicResultCompleted, msg.Topic)
	assert.Equal(t, "s-1", string(msg.Key))
	assert.Equal(t, EventResultCompleted, msg.Headers["event_type"])

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &raw))
	assert.Contains(t, raw, "eventId")
	assert.Equal(t, "v1", raw["schemaVersion"])

	got, err := DecodeResultCompleted(&Message{Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, res.SessionID, got.SessionID)
	assert.Equal(t, res.TestType, got.TestType)
	assert.Equal(t, res.Language, got.Language)
	assert.True(t, res.Scores.Equal(got.Scores))
	assert.Equal(t, "ENTJ", got.ProfileKey)
	assert.True(t, done.Equal(got.CompletedAt))
}

func TestDecodeResultCompleted_WrongType(t *testing.T) {
	env, err := NewEventEnvelope("other.event", "x", map[string]string{"a": "b"})
	require.NoError(t, err)
	msg, err := env.ToMessage("t", nil)
	require.NoError(t, err)

	_, err = DecodeResultCompleted(&Message{Value: msg.Value})
	assert.Error(t, err)

	_, err = DecodeResultCompleted(&Message{})
	assert.Error(t, err)
}
