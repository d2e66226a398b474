package questions

import (
	"context"
	"time"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// Cache is the subset of the Redis cache the question source needs. Keys are
// test type names; the cache owns the namespace.
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// CachedSource fronts a Source with a cache. Concurrent misses for the same
// test share one upstream fetch, and an empty upstream set is remembered
// briefly as a miss.
type CachedSource struct {
	next    Source
	cache   Cache
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

// NewCachedSource wraps next. Entries live for the cache's default TTL. A nil
// logger or metrics disables them.
func NewCachedSource(next Source, cache Cache, logger logging.Logger, metrics *prometheus.AppMetrics) *CachedSource {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopMetrics()
	}
	return &CachedSource{next: next, cache: cache, logger: logger, metrics: metrics}
}

// Questions serves t from cache, filling it from the wrapped source on a miss.
// An upstream without a stored set yields a not-found error.
func (c *CachedSource) Questions(ctx context.Context, t quiz.TestType, lang quiz.Language) ([]quiz.Question, error) {
	var (
		qs     []quiz.Question
		loaded bool
	)
	err := c.cache.GetOrSet(ctx, string(t), &qs, 0, func(ctx context.Context) (interface{}, error) {
		loaded = true
		set, err := c.next.Questions(ctx, t, lang)
		if err != nil {
			return nil, err
		}
		if len(set) == 0 {
			return nil, nil
		}
		return set, nil
	})
	prometheus.RecordCacheAccess(c.metrics, "questions", !loaded)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotFound("no stored question set").WithDetail(string(t))
		}
		return nil, err
	}
	return qs, nil
}

// Invalidate drops the cached sets of types, or every cached set when no type
// is given.
func (c *CachedSource) Invalidate(ctx context.Context, types ...quiz.TestType) error {
	if len(types) == 0 {
		n, err := c.cache.DeleteByPrefix(ctx, "")
		if err != nil {
			return err
		}
		c.logger.Info("Dropped cached question sets", logging.Int64("keys", n))
		return nil
	}
	keys := make([]string, len(types))
	for i, t := range types {
		keys[i] = string(t)
	}
	return c.cache.Delete(ctx, keys...)
}
