package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

const (
	TopicResultCompleted    = "quiz.result.completed"
	TopicResultCompletedDLQ = TopicResultCompleted + ".dlq"

	EventResultCompleted = "quiz.result.completed"
	SchemaVersion        = "v1"
)

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schemaVersion"`
	Payload       json.RawMessage `json:"payload"`
}

// ResultCompletedPayload is the body of a quiz.result.completed event.
type ResultCompletedPayload struct {
	SessionID   string         `json:"sessionId"`
	TestID      string         `json:"testId"`
	Language    string         `json:"language"`
	Scores      map[string]int `json:"scores"`
	ProfileKey  string         `json:"profileKey,omitempty"`
	CompletedAt time.Time      `json:"completedAt"`
}

// NewEventEnvelope wraps payload with a fresh event id.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "event has no payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode payload")
	}
	return nil
}

// ToMessage encodes the envelope for topic, keyed by key.
func (e *EventEnvelope) ToMessage(topic string, key []byte) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &ProducerMessage{
		Topic: topic,
		Key:   key,
		Value: val,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"source_service": e.Source,
			"schema_version": e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// MessageToEventEnvelope decodes a consumed message.
func MessageToEventEnvelope(msg *Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// Publisher is the producer side used by ResultPublisher.
type Publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// ResultPublisher emits quiz.result.completed events keyed by session id.
type ResultPublisher struct {
	producer Publisher
	source   string
}

// NewResultPublisher returns a publisher tagging events with source.
func NewResultPublisher(p Publisher, source string) *ResultPublisher {
	return &ResultPublisher{producer: p, source: source}
}

// PublishResultCompleted publishes r.
func (p *ResultPublisher) PublishResultCompleted(ctx context.Context, r quiz.Result) error {
	scores := make(map[string]int, len(r.Scores))
	for f, n := range r.Scores {
		scores[string(f)] = n
	}
	env, err := NewEventEnvelope(EventResultCompleted, p.source, ResultCompletedPayload{
		SessionID:   r.SessionID,
		TestID:      string(r.TestType),
		Language:    string(r.Language),
		Scores:      scores,
		ProfileKey:  r.ProfileKey,
		CompletedAt: r.CompletedAt.UTC(),
	})
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(TopicResultCompleted, []byte(r.SessionID))
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

// DecodeResultCompleted extracts the result of a quiz.result.completed message.
func DecodeResultCompleted(msg *Message) (quiz.Result, error) {
	env, err := MessageToEventEnvelope(msg)
	if err != nil {
		return quiz.Result{}, err
	}
	if env.EventType != EventResultCompleted {
		return quiz.Result{}, errors.New(errors.ErrCodeValidation, "unexpected event type "+env.EventType)
	}
	var p ResultCompletedPayload
	if err := env.DecodePayload(&p); err != nil {
		return quiz.Result{}, err
	}
	scores := make(quiz.ScoreVector, len(p.Scores))
	for f, n := range p.Scores {
		scores[quiz.Factor(f)] = n
	}
	return quiz.Result{
		SessionID:   p.SessionID,
		TestType:    quiz.TestType(p.TestID),
		Language:    quiz.Language(p.Language),
		Scores:      scores,
		ProfileKey:  p.ProfileKey,
		CompletedAt: p.CompletedAt,
		Timestamp:   p.CompletedAt.UnixMilli(),
	}, nil
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates the service's topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager dials the first broker.
func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to dial kafka")
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

// CreateTopic creates cfg. An existing topic is not an error.
func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 {
		return errors.New(errors.ErrCodeValidation, "NumPartitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "ReplicationFactor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: fmt.Sprintf("%d", cfg.RetentionMs)})
	}
	if cfg.CleanupPolicy != "" {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "cleanup.policy", ConfigValue: cfg.CleanupPolicy})
	}
	if cfg.MaxMessageBytes > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "max.message.bytes", ConfigValue: fmt.Sprintf("%d", cfg.MaxMessageBytes)})
	}
	for k, v := range cfg.Configs {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: k, ConfigValue: v})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create topic "+cfg.Name)
	}
	m.logger.Info("Topic created", logging.String("topic", cfg.Name))
	return nil
}

// TopicExists reports whether name has partitions.
func (m *TopicManager) TopicExists(_ context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// HealthCheck fails unless topic is readable and has partitions.
func (m *TopicManager) HealthCheck(_ context.Context, topic string) error {
	partitions, err := m.conn.ReadPartitions(topic)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to read partitions of "+topic)
	}
	if len(partitions) == 0 {
		return errors.New(errors.ErrCodeServiceUnavailable, "topic has no partitions").WithDetail(topic)
	}
	return nil
}

// CheckBrokers dials the first reachable broker and runs HealthCheck for
// topic over a short-lived connection bounded by ctx.
func CheckBrokers(ctx context.Context, brokers []string, topic string) error {
	if len(brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	var (
		dialer  kafka.Dialer
		lastErr error
	)
	for _, broker := range brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(deadline)
		}
		m := &TopicManager{conn: conn, logger: logging.NewNopLogger()}
		err = m.HealthCheck(ctx, topic)
		_ = conn.Close()
		return err
	}
	return errors.Wrap(lastErr, errors.ErrCodeServiceUnavailable, "no kafka broker reachable")
}

// EnsureDefaultTopics creates DefaultTopics.
func (m *TopicManager) EnsureDefaultTopics(ctx context.Context) error {
	for _, t := range DefaultTopics() {
		if err := m.CreateTopic(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the broker connection.
func (m *TopicManager) Close() error {
	return m.conn.Close()
}

// DefaultTopics are the topics the service publishes to.
func DefaultTopics() []TopicConfig {
	const day = 24 * 3600 * 1000
	return []TopicConfig{
		{Name: TopicResultCompleted, NumPartitions: 6, ReplicationFactor: 1, RetentionMs: 7 * day},
		{Name: TopicResultCompletedDLQ, NumPartitions: 1, ReplicationFactor: 1, RetentionMs: 30 * day},
	}
}
