package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// Local keeps one JSON blob per key in a KV. Progress older than the
// freshness window is deleted when loaded and handed back once so the caller
// can tell the user the session restarted.
type Local struct {
	kv     KV
	window time.Duration
	now    func() time.Time
	logger logging.Logger
}

// LocalOption configures a Local store.
type LocalOption func(*Local)

// WithFreshnessWindow overrides quiz.DefaultFreshnessWindow.
func WithFreshnessWindow(d time.Duration) LocalOption {
	return func(l *Local) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) LocalOption {
	return func(l *Local) { l.now = now }
}

// WithLocalLogger sets the logger.
func WithLocalLogger(logger logging.Logger) LocalOption {
	return func(l *Local) { l.logger = logger }
}

// NewLocal wraps kv.
func NewLocal(kv KV, opts ...LocalOption) *Local {
	l := &Local{
		kv:     kv,
		window: quiz.DefaultFreshnessWindow,
		now:    time.Now,
		logger: logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Local) SaveProgress(ctx context.Context, s quiz.ProgressSnapshot) error {
	if s.Timestamp <= 0 {
		s.Timestamp = l.now().UnixMilli()
	}
	return l.put(ctx, ProgressKey(s.TestType), s)
}

// SaveResult replaces the stored result of the same test type and clears its
// progress.
func (l *Local) SaveResult(ctx context.Context, r quiz.Result) error {
	if r.Timestamp <= 0 {
		r.Timestamp = l.now().UnixMilli()
	}
	if err := l.put(ctx, ResultKey(r.TestType), r); err != nil {
		return err
	}
	return l.ClearProgress(ctx, r.TestType)
}

func (l *Local) LoadProgress(ctx context.Context, t quiz.TestType) (*quiz.ProgressSnapshot, error) {
	key := ProgressKey(t)
	raw, err := l.kv.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "load progress")
	}
	if raw == nil {
		return nil, nil
	}

	var s quiz.ProgressSnapshot
	if err := json.Unmarshal(raw, &s); err != nil || s.Validate() != nil || s.TestType != t {
		l.logger.Warn("discarding malformed progress snapshot", logging.String("key", key))
		return nil, l.discard(ctx, key)
	}
	if s.Expired(l.now(), l.window) {
		l.logger.Info("progress snapshot expired", logging.String("key", key), logging.Int64("timestamp", s.Timestamp))
		if err := l.discard(ctx, key); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func (l *Local) LoadResult(ctx context.Context, t quiz.TestType) (*quiz.Result, error) {
	key := ResultKey(t)
	raw, err := l.kv.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "load result")
	}
	if raw == nil {
		return nil, nil
	}
	var r quiz.Result
	if err := json.Unmarshal(raw, &r); err != nil || r.TestType != t {
		l.logger.Warn("discarding malformed result", logging.String("key", key))
		return nil, l.discard(ctx, key)
	}
	return &r, nil
}

func (l *Local) ClearProgress(ctx context.Context, t quiz.TestType) error {
	if err := l.kv.Delete(ctx, ProgressKey(t)); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "clear progress")
	}
	return nil
}

func (l *Local) put(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode "+key)
	}
	if err := l.kv.Put(ctx, key, raw); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "store "+key)
	}
	return nil
}

func (l *Local) discard(ctx context.Context, key string) error {
	if err := l.kv.Delete(ctx, key); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "discard "+key)
	}
	return nil
}
