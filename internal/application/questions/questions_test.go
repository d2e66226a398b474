package questions

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/domain/scoring"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/redis"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

type mockSource struct{ mock.Mock }

func (m *mockSource) Questions(ctx context.Context, t quiz.TestType, lang quiz.Language) ([]quiz.Question, error) {
	args := m.Called(ctx, t, lang)
	qs, _ := args.Get(0).([]quiz.Question)
	return qs, args.Error(1)
}

type slowSource struct{}

func (slowSource) Questions(ctx context.Context, _ quiz.TestType, _ quiz.Language) ([]quiz.Question, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func mustBundled(t *testing.T) *Bundled {
	t.Helper()
	b, err := NewBundled()
	require.NoError(t, err)
	return b
}

func TestBundled_LoadsEverySet(t *testing.T) {
	b := mustBundled(t)
	want := map[quiz.TestType]int{quiz.TestDISC: 32, quiz.TestMBTI: 16, quiz.TestBigFive: 20}

	for tt, n := range want {
		qs, err := b.Questions(context.Background(), tt, quiz.English)
		require.NoError(t, err)
		assert.Len(t, qs, n, tt)
		for _, q := range qs {
			for _, lang := range quiz.Languages {
				if q.Format() == quiz.FormatScale {
					assert.NotEmpty(t, q.Text[lang], "%s %s", q.ID, lang)
				} else {
					assert.NotEmpty(t, q.Options[0].Text[lang], "%s %s", q.ID, lang)
					assert.NotEmpty(t, q.Options[1].Text[lang], "%s %s", q.ID, lang)
				}
			}
		}
	}
	assert.Len(t, b.Sets(), 3)
}

func TestBundled_BalancedFactors(t *testing.T) {
	b := mustBundled(t)

	disc, _ := b.Questions(context.Background(), quiz.TestDISC, quiz.English)
	assert.Equal(t, map[quiz.Factor]int{"D": 8, "I": 8, "S": 8, "C": 8}, scoring.Counts(disc))

	mbti, _ := b.Questions(context.Background(), quiz.TestMBTI, quiz.English)
	for _, f := range scoring.MBTIFactors {
		assert.Equal(t, 4, scoring.Counts(mbti)[f], f)
	}

	big5, _ := b.Questions(context.Background(), quiz.TestBigFive, quiz.English)
	reversed := 0
	for _, q := range big5 {
		if q.Reverse {
			reversed++
		}
	}
	assert.Equal(t, 5, reversed)
}

func TestBundled_ReturnsCopies(t *testing.T) {
	b := mustBundled(t)
	qs, _ := b.Questions(context.Background(), quiz.TestDISC, quiz.English)
	qs[0].ID = "tampered"

	again, _ := b.Questions(context.Background(), quiz.TestDISC, quiz.English)
	assert.NotEqual(t, "tampered", again[0].ID)
}

func TestParseSet_SchemaViolations(t *testing.T) {
	cases := map[string]string{
		"not json":          `{`,
		"unknown test type": `{"testType":"hexaco","format":"scale","questions":[{"id":"a","position":0,"factor":"D","text":{"en":"x"}}]}`,
		"empty questions":   `{"testType":"disc","format":"scale","questions":[]}`,
		"missing position":  `{"testType":"disc","format":"scale","questions":[{"id":"a","factor":"D","text":{"en":"x"}}]}`,
		"factor and options": `{"testType":"mbti","format":"forced_choice","questions":[{"id":"a","position":0,"factor":"E",
			"options":[{"factor":"E","text":{"en":"x"}},{"factor":"I","text":{"en":"y"}}]}]}`,
		"one option": `{"testType":"mbti","format":"forced_choice","questions":[{"id":"a","position":0,
			"options":[{"factor":"E","text":{"en":"x"}}]}]}`,
		"empty text": `{"testType":"disc","format":"scale","questions":[{"id":"a","position":0,"factor":"D","text":{"en":""}}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSet([]byte(raw))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTestData), err.Error())
		})
	}
}

func TestParseSet_SemanticViolations(t *testing.T) {
	cases := map[string]string{
		"wrong format": `{"testType":"disc","format":"forced_choice","questions":[{"id":"a","position":0,"factor":"D","text":{"en":"x"}}]}`,
		"wrong scale":  `{"testType":"disc","format":"scale","scale":{"min":1,"max":5},"questions":[{"id":"a","position":0,"factor":"D","text":{"en":"x"}}]}`,
		"foreign factor": `{"testType":"disc","format":"scale","questions":[{"id":"a","position":0,"factor":"O","text":{"en":"x"}}]}`,
		"gap in positions": `{"testType":"disc","format":"scale","questions":[
			{"id":"a","position":0,"factor":"D","text":{"en":"x"}},{"id":"b","position":2,"factor":"I","text":{"en":"y"}}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSet([]byte(raw))
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTestData))
		})
	}

	set, err := ParseSet([]byte(`{"testType":"disc","format":"scale","scale":{"min":1,"max":4},
		"questions":[{"id":"a","position":0,"factor":"D","text":{"en":"x"}}]}`))
	require.NoError(t, err)
	assert.Len(t, set.Questions, 1)
}

func TestValidateList(t *testing.T) {
	b := mustBundled(t)
	qs, _ := b.Questions(context.Background(), quiz.TestMBTI, quiz.English)
	raw, err := json.Marshal(qs)
	require.NoError(t, err)
	assert.NoError(t, ValidateList(raw))

	assert.Error(t, ValidateList([]byte(`[]`)))
	assert.Error(t, ValidateList([]byte(`{"id":"a"}`)))
}

func TestValidate_ForcedChoiceRules(t *testing.T) {
	def := catalog.MustLookup(quiz.TestMBTI)
	same := []quiz.Question{{ID: "m", Options: []quiz.Option{
		{Factor: "E", Text: quiz.LocalizedText{quiz.English: "a"}},
		{Factor: "E", Text: quiz.LocalizedText{quiz.English: "b"}},
	}}}
	assert.Error(t, Validate(def, same))

	reversed := []quiz.Question{{ID: "m", Reverse: true, Options: []quiz.Option{
		{Factor: "E", Text: quiz.LocalizedText{quiz.English: "a"}},
		{Factor: "I", Text: quiz.LocalizedText{quiz.English: "b"}},
	}}}
	assert.Error(t, Validate(def, reversed))
	assert.Error(t, Validate(def, nil))
}

func TestProvider_RemoteFirst(t *testing.T) {
	b := mustBundled(t)
	remoteSet, _ := b.Questions(context.Background(), quiz.TestDISC, quiz.English)
	remoteSet = remoteSet[:4]

	src := &mockSource{}
	src.On("Questions", mock.Anything, quiz.TestDISC, quiz.Portuguese).Return(remoteSet, nil).Once()

	p := NewProvider(b, WithRemote(src))
	set, err := p.Load(context.Background(), quiz.TestDISC, quiz.Portuguese)
	require.NoError(t, err)

	assert.Equal(t, SourceRemote, set.Source)
	assert.Len(t, set.Questions, 4)
	assert.Equal(t, quiz.LocalizedText{quiz.Portuguese: remoteSet[0].Text[quiz.Portuguese]}, set.Questions[0].Text)
	src.AssertExpectations(t)
}

func TestProvider_FallsBackToBundled(t *testing.T) {
	b := mustBundled(t)

	t.Run("remote error", func(t *testing.T) {
		src := &mockSource{}
		src.On("Questions", mock.Anything, quiz.TestMBTI, quiz.Spanish).Return(nil, stderrors.New("503"))

		set, err := NewProvider(b, WithRemote(src)).Load(context.Background(), quiz.TestMBTI, quiz.Spanish)
		require.NoError(t, err)
		assert.Equal(t, SourceBundled, set.Source)
		assert.Len(t, set.Questions, 16)
		assert.Contains(t, set.Questions[0].Options[0].Text, quiz.Spanish)
	})

	t.Run("remote invalid", func(t *testing.T) {
		src := &mockSource{}
		src.On("Questions", mock.Anything, quiz.TestBigFive, quiz.English).
			Return([]quiz.Question{{ID: "x", Position: 3, Factor: "O", Text: quiz.LocalizedText{quiz.English: "t"}}}, nil)

		set, err := NewProvider(b, WithRemote(src)).Load(context.Background(), quiz.TestBigFive, quiz.English)
		require.NoError(t, err)
		assert.Equal(t, SourceBundled, set.Source)
	})

	t.Run("remote timeout", func(t *testing.T) {
		start := time.Now()
		set, err := NewProvider(b, WithRemote(slowSource{}), WithTimeout(20*time.Millisecond)).
			Load(context.Background(), quiz.TestDISC, quiz.English)
		require.NoError(t, err)
		assert.Equal(t, SourceBundled, set.Source)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("no remote", func(t *testing.T) {
		set, err := NewProvider(b).Load(context.Background(), quiz.TestDISC, quiz.English)
		require.NoError(t, err)
		assert.Equal(t, SourceBundled, set.Source)
	})
}

func TestProvider_InvalidBundledBlocks(t *testing.T) {
	bad := &mockSource{}
	bad.On("Questions", mock.Anything, quiz.TestDISC, quiz.English).Return([]quiz.Question{}, nil)

	_, err := NewProvider(bad).Load(context.Background(), quiz.TestDISC, quiz.English)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTestData))

	_, err = NewProvider(bad).Load(context.Background(), "hexaco", quiz.English)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownTestType))
}

type countingSource struct {
	calls int32
	next  Source
}

func (c *countingSource) Questions(ctx context.Context, t quiz.TestType, lang quiz.Language) ([]quiz.Question, error) {
	atomic.AddInt32(&c.calls, 1)
	time.Sleep(10 * time.Millisecond)
	return c.next.Questions(ctx, t, lang)
}

// newQuestionCache builds the cache the way the API server and the seed
// command do, over one shared miniredis.
func newQuestionCache(t *testing.T, mr *miniredis.Miniredis) redis.Cache {
	t.Helper()
	client, err := redis.NewClient(&redis.RedisConfig{Mode: "standalone", Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewQuestionCache(client, logging.NewNopLogger(), "pquiz:", time.Minute)
}

func TestCachedSource(t *testing.T) {
	mr := miniredis.RunT(t)
	upstream := &countingSource{next: mustBundled(t)}
	src := NewCachedSource(upstream, newQuestionCache(t, mr), nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			qs, err := src.Questions(context.Background(), quiz.TestDISC, quiz.English)
			assert.NoError(t, err)
			assert.Len(t, qs, 32)
		}()
	}
	wg.Wait()
	first := atomic.LoadInt32(&upstream.calls)
	assert.GreaterOrEqual(t, first, int32(1))
	assert.True(t, mr.Exists("pquiz:questions:disc"))

	qs, err := src.Questions(context.Background(), quiz.TestDISC, quiz.English)
	require.NoError(t, err)
	assert.Len(t, qs, 32)
	assert.Equal(t, first, atomic.LoadInt32(&upstream.calls), "served from cache")
}

func TestCachedSource_SeedInvalidationReachesServerCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	upstream := &countingSource{next: mustBundled(t)}
	server := NewCachedSource(upstream, newQuestionCache(t, mr), nil, nil)
	_, err := server.Questions(ctx, quiz.TestMBTI, quiz.English)
	require.NoError(t, err)
	_, err = server.Questions(ctx, quiz.TestMBTI, quiz.English)
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&upstream.calls))

	// The seed command runs in another process with its own cache handle.
	seeder := NewCachedSource(new(mockSource), newQuestionCache(t, mr), nil, nil)
	require.NoError(t, seeder.Invalidate(ctx, quiz.TestMBTI))
	assert.False(t, mr.Exists("pquiz:questions:mbti"))

	_, err = server.Questions(ctx, quiz.TestMBTI, quiz.English)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&upstream.calls))
}

func TestCachedSource_EmptyStoreIsRememberedUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	empty := new(mockSource)
	empty.On("Questions", mock.Anything, quiz.TestDISC, quiz.English).Return([]quiz.Question{}, nil)
	src := NewCachedSource(empty, newQuestionCache(t, mr), nil, nil)

	for i := 0; i < 3; i++ {
		_, err := src.Questions(ctx, quiz.TestDISC, quiz.English)
		assert.True(t, errors.IsNotFound(err))
	}
	empty.AssertNumberOfCalls(t, "Questions", 1)

	require.NoError(t, src.Invalidate(ctx))
	_, err := src.Questions(ctx, quiz.TestDISC, quiz.English)
	assert.True(t, errors.IsNotFound(err))
	empty.AssertNumberOfCalls(t, "Questions", 2)
}

func TestCachedSource_UpstreamErrorPassesThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	down := new(mockSource)
	down.On("Questions", mock.Anything, quiz.TestBigFive, quiz.English).
		Return(nil, errors.New(errors.ErrCodeDatabaseError, "connection refused"))
	src := NewCachedSource(down, newQuestionCache(t, mr), nil, nil)

	_, err := src.Questions(context.Background(), quiz.TestBigFive, quiz.English)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
	assert.False(t, mr.Exists("pquiz:questions:bigfive"))
}
