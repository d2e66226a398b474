package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/PersonaQuiz/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	client := NewClientWithUniversal(db, logging.NewNopLogger())
	s.cache = NewRedisCache(client, logging.NewNopLogger(), WithPrefix("test:"), WithoutJitter())
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type cachedQuestion struct {
	ID     string `json:"id"`
	Factor string `json:"factor"`
}

func (s *CacheTestSuite) TestGet_CacheHit() {
	val := []cachedQuestion{{ID: "disc-d-1", Factor: "D"}}
	raw, _ := json.Marshal(val)
	s.mock.ExpectGet("test:questions:disc").SetVal(string(raw))

	var dest []cachedQuestion
	err := s.cache.Get(context.Background(), "questions:disc", &dest)
	s.NoError(err)
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGet_CacheMiss() {
	s.mock.ExpectGet("test:questions:disc").RedisNil()

	var dest []cachedQuestion
	err := s.cache.Get(context.Background(), "questions:disc", &dest)
	s.Equal(ErrCacheMiss, err)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeNotFound))
}

func (s *CacheTestSuite) TestGet_NullMarkerIsMiss() {
	s.mock.ExpectGet("test:k").SetVal(nullMarker)

	var dest []cachedQuestion
	s.Equal(ErrCacheMiss, s.cache.Get(context.Background(), "k", &dest))
}

func (s *CacheTestSuite) TestGet_BackendError() {
	s.mock.ExpectGet("test:k").SetErr(assert.AnError)

	var dest []cachedQuestion
	err := s.cache.Get(context.Background(), "k", &dest)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestSet_UsesExactTTLWithoutJitter() {
	val := []cachedQuestion{{ID: "mbti-ei-1"}}
	raw, _ := json.Marshal(val)
	s.mock.ExpectSet("test:questions:mbti", raw, 10*time.Minute).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "questions:mbti", val, 10*time.Minute))
}

func (s *CacheTestSuite) TestSet_DefaultTTL() {
	raw, _ := json.Marshal("v")
	s.mock.ExpectSet("test:k", raw, 15*time.Minute).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "k", "v", 0))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:k1", "test:k2").SetVal(2)
	s.NoError(s.cache.Delete(context.Background(), "k1", "k2"))
	s.NoError(s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestGetOrSet_RememberedMissSkipsLoader() {
	s.mock.ExpectGet("test:k").SetVal(nullMarker)

	var dest cachedQuestion
	err := s.cache.GetOrSet(context.Background(), "k", &dest, time.Minute, func(context.Context) (interface{}, error) {
		s.Fail("loader must not run while the miss is remembered")
		return nil, nil
	})
	s.Equal(ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestGetOrSet_BackendErrorFallsThroughToLoader() {
	val := cachedQuestion{ID: "disc-d-1", Factor: "D"}
	raw, _ := json.Marshal(val)
	s.mock.ExpectGet("test:k").SetErr(assert.AnError)
	s.mock.ExpectSet("test:k", raw, time.Minute).SetVal("OK")

	var dest cachedQuestion
	err := s.cache.GetOrSet(context.Background(), "k", &dest, time.Minute, func(context.Context) (interface{}, error) {
		return val, nil
	})
	s.NoError(err)
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGetOrSet_Hit() {
	val := cachedQuestion{ID: "bigfive-o-1", Factor: "O"}
	raw, _ := json.Marshal(val)
	s.mock.ExpectGet("test:k").SetVal(string(raw))

	called := false
	var dest cachedQuestion
	err := s.cache.GetOrSet(context.Background(), "k", &dest, time.Minute, func(context.Context) (interface{}, error) {
		called = true
		return nil, nil
	})
	s.NoError(err)
	s.False(called)
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGetOrSet_MissLoadsAndStores() {
	val := cachedQuestion{ID: "bigfive-o-1", Factor: "O"}
	raw, _ := json.Marshal(val)
	s.mock.ExpectGet("test:k").RedisNil()
	s.mock.ExpectSet("test:k", raw, time.Minute).SetVal("OK")

	var dest cachedQuestion
	err := s.cache.GetOrSet(context.Background(), "k", &dest, time.Minute, func(context.Context) (interface{}, error) {
		return val, nil
	})
	s.NoError(err)
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGetOrSet_NilRemembersMiss() {
	s.mock.ExpectGet("test:k").RedisNil()
	s.mock.ExpectSet("test:k", nullMarker, 30*time.Second).SetVal("OK")

	var dest cachedQuestion
	err := s.cache.GetOrSet(context.Background(), "k", &dest, time.Minute, func(context.Context) (interface{}, error) {
		return nil, nil
	})
	s.Equal(ErrCacheMiss, err)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestCache_DeleteByPrefix(t *testing.T) {
	mr, client := newMiniClient(t)
	cache := NewRedisCache(client, logging.NewNopLogger())
	ctx := context.Background()

	for _, k := range []string{"questions:disc", "questions:mbti", "other"} {
		mr.Set("pquiz:"+k, "x")
	}
	n, err := cache.DeleteByPrefix(ctx, "questions:")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, mr.Exists("pquiz:other"))
}

func TestNewQuestionCache_KeysAndTTL(t *testing.T) {
	mr, client := newMiniClient(t)
	cache := NewQuestionCache(client, logging.NewNopLogger(), "pquiz:", 10*time.Minute)
	ctx := context.Background()

	assert.NoError(t, cache.Set(ctx, "disc", []cachedQuestion{{ID: "disc-d-1"}}, 0))
	assert.True(t, mr.Exists("pquiz:questions:disc"))
	ttl := mr.TTL("pquiz:questions:disc")
	assert.InDelta(t, float64(10*time.Minute), float64(ttl), float64(time.Minute))

	var dest []cachedQuestion
	err := cache.GetOrSet(ctx, "mbti", &dest, 0, func(context.Context) (interface{}, error) { return nil, nil })
	assert.Equal(t, ErrCacheMiss, err)
	assert.Equal(t, questionNullTTL, mr.TTL("pquiz:questions:mbti"))

	n, err := cache.DeleteByPrefix(ctx, "")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
