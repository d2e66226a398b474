package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// ProgressStore keeps server-side progress snapshots under
// progress:<sessionId>:<testId>. Keys expire with the freshness window.
type ProgressStore struct {
	client *Client
	prefix string
	ttl    time.Duration
	logger logging.Logger
}

// NewProgressStore returns a store whose keys live for ttl
// (quiz.DefaultFreshnessWindow when zero).
func NewProgressStore(client *Client, prefix string, ttl time.Duration, log logging.Logger) *ProgressStore {
	if ttl <= 0 {
		ttl = quiz.DefaultFreshnessWindow
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ProgressStore{client: client, prefix: prefix, ttl: ttl, logger: log}
}

// ProgressKey is the unprefixed key of a session's snapshot.
func ProgressKey(sessionID string, t quiz.TestType) string {
	return "progress:" + sessionID + ":" + string(t)
}

func (s *ProgressStore) key(sessionID string, t quiz.TestType) string {
	return s.prefix + ProgressKey(sessionID, t)
}

// Save replaces the session's snapshot and resets its TTL.
func (s *ProgressStore) Save(ctx context.Context, snap quiz.ProgressSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode progress")
	}
	if err := s.client.Set(ctx, s.key(snap.SessionID, snap.TestType), data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "save progress")
	}
	return nil
}

// Load returns nil, nil when no snapshot exists. An undecodable value is
// deleted and reported as missing.
func (s *ProgressStore) Load(ctx context.Context, sessionID string, t quiz.TestType) (*quiz.ProgressSnapshot, error) {
	key := s.key(sessionID, t)
	data, err := s.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "load progress")
	}
	var snap quiz.ProgressSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("Discarding undecodable progress", logging.String("key", key), logging.Err(err))
		s.client.Del(ctx, key)
		return nil, nil
	}
	return &snap, nil
}

// Clear deletes the session's snapshot.
func (s *ProgressStore) Clear(ctx context.Context, sessionID string, t quiz.TestType) error {
	if err := s.client.Del(ctx, s.key(sessionID, t)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "clear progress")
	}
	return nil
}
