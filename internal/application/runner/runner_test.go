package runner

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PersonaQuiz/internal/application/persistence"
	"github.com/turtacn/PersonaQuiz/internal/application/questions"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/domain/session"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type failingStore struct {
	persistence.LocalStore
}

func (failingStore) SaveProgress(context.Context, quiz.ProgressSnapshot) error {
	return stderrors.New("read-only filesystem")
}

type fixture struct {
	kv    *memKV
	local *persistence.Local
	now   time.Time
	ids   int
}

func newFixture() *fixture {
	f := &fixture{kv: &memKV{data: map[string][]byte{}}, now: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)}
	f.local = persistence.NewLocal(f.kv, persistence.WithClock(f.clock))
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) nextID() string {
	f.ids++
	return "session-" + string(rune('0'+f.ids))
}

func (f *fixture) runner(t *testing.T, store persistence.LocalStore) *Runner {
	t.Helper()
	bundled, err := questions.NewBundled()
	require.NoError(t, err)
	return New(questions.NewProvider(bundled), store, WithClock(f.clock), WithSessionIDs(f.nextID))
}

// chooseSecond answers every MBTI item with its second option (I, N, F, P).
func chooseSecond(t *testing.T, ctx context.Context, r *Runner, n int) bool {
	t.Helper()
	var done bool
	for i := 0; i < n; i++ {
		q, ok := r.Current()
		require.True(t, ok)
		var err error
		done, err = r.Answer(ctx, quiz.Answer{QuestionID: q.ID, Factor: q.Options[1].Factor})
		require.NoError(t, err)
	}
	return done
}

func TestRunner_CompletesAndPersists(t *testing.T) {
	f := newFixture()
	r := f.runner(t, f.local)
	ctx := context.Background()

	outcome, err := r.Start(ctx, quiz.TestMBTI, quiz.Portuguese)
	require.NoError(t, err)
	assert.Equal(t, session.ResumeNone, outcome)
	assert.Equal(t, questions.SourceBundled, r.Source())
	assert.Equal(t, quiz.Portuguese, r.Language())

	q, ok := r.Current()
	require.True(t, ok)
	assert.Contains(t, q.Options[0].Text, quiz.Portuguese)
	assert.NotContains(t, q.Options[0].Text, quiz.English)

	answered, total := r.Progress()
	assert.Equal(t, 0, answered)
	assert.Equal(t, 16, total)

	done := chooseSecond(t, ctx, r, 16)
	assert.True(t, done)

	res, ok := r.Result()
	require.True(t, ok)
	assert.Equal(t, "INFP", res.ProfileKey)
	assert.Equal(t, "session-1", res.SessionID)

	stored, err := f.local.LoadResult(ctx, quiz.TestMBTI)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "INFP", stored.ProfileKey)

	snap, err := f.local.LoadProgress(ctx, quiz.TestMBTI)
	require.NoError(t, err)
	assert.Nil(t, snap)

	_, err = r.Answer(ctx, quiz.Answer{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeSessionCompleted))
}

func TestRunner_ResumesFreshSnapshot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first := f.runner(t, f.local)
	_, err := first.Start(ctx, quiz.TestMBTI, quiz.English)
	require.NoError(t, err)
	chooseSecond(t, ctx, first, 5)

	f.now = f.now.Add(30 * time.Minute)
	second := f.runner(t, f.local)
	outcome, err := second.Start(ctx, quiz.TestMBTI, quiz.English)
	require.NoError(t, err)
	assert.Equal(t, session.ResumeRestored, outcome)
	assert.Equal(t, first.State().SessionID, second.State().SessionID)

	answered, _ := second.Progress()
	assert.Equal(t, 5, answered)
	assert.True(t, second.State().Scores.Equal(first.State().Scores))

	done := chooseSecond(t, ctx, second, 11)
	assert.True(t, done)
	res, _ := second.Result()
	assert.Equal(t, "INFP", res.ProfileKey)
}

func TestRunner_ExpiredSnapshotRestarts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first := f.runner(t, f.local)
	_, err := first.Start(ctx, quiz.TestMBTI, quiz.English)
	require.NoError(t, err)
	chooseSecond(t, ctx, first, 3)

	f.now = f.now.Add(quiz.DefaultFreshnessWindow + time.Millisecond)
	second := f.runner(t, f.local)
	outcome, err := second.Start(ctx, quiz.TestMBTI, quiz.English)
	require.NoError(t, err)
	assert.Equal(t, session.ResumeExpired, outcome)

	answered, _ := second.Progress()
	assert.Equal(t, 0, answered)
	assert.NotEqual(t, first.State().SessionID, second.State().SessionID)

	snap, err := f.local.LoadProgress(ctx, quiz.TestMBTI)
	require.NoError(t, err)
	assert.Nil(t, snap)

	third := f.runner(t, f.local)
	outcome, err = third.Start(ctx, quiz.TestMBTI, quiz.English)
	require.NoError(t, err)
	assert.Equal(t, session.ResumeNone, outcome, "expiry is reported once")
}

func TestRunner_InconsistentSnapshotDiscarded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	bogus := quiz.ProgressSnapshot{
		SessionID: "old",
		TestType:  quiz.TestMBTI,
		Language:  quiz.English,
		Index:     1,
		Scores:    quiz.ScoreVector{"E": 5},
		Answers:   []quiz.Answer{{QuestionID: "mbti-ei-1", Factor: "I"}},
		Timestamp: f.now.UnixMilli(),
	}
	require.NoError(t, f.local.SaveProgress(ctx, bogus))

	r := f.runner(t, f.local)
	outcome, err := r.Start(ctx, quiz.TestMBTI, quiz.English)
	require.NoError(t, err)
	assert.Equal(t, session.ResumeDiscarded, outcome)
	assert.NotEqual(t, "old", r.State().SessionID)

	answered, _ := r.Progress()
	assert.Equal(t, 0, answered)
	snap, err := f.local.LoadProgress(ctx, quiz.TestMBTI)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestRunner_ProgressSaveFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	r := f.runner(t, failingStore{LocalStore: f.local})
	ctx := context.Background()

	_, err := r.Start(ctx, quiz.TestMBTI, quiz.English)
	require.NoError(t, err)
	q, _ := r.Current()
	done, err := r.Answer(ctx, quiz.Answer{QuestionID: q.ID, Factor: q.Options[0].Factor})
	require.NoError(t, err)
	assert.False(t, done)
}

func TestRunner_OutOfOrderAnswerRejected(t *testing.T) {
	f := newFixture()
	r := f.runner(t, f.local)
	ctx := context.Background()

	_, err := r.Start(ctx, quiz.TestMBTI, quiz.English)
	require.NoError(t, err)
	_, err = r.Answer(ctx, quiz.Answer{QuestionID: "mbti-sn-1", Factor: "N"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeAnswerOutOfOrder))

	answered, _ := r.Progress()
	assert.Equal(t, 0, answered)
}

func TestRunner_UnknownTestType(t *testing.T) {
	f := newFixture()
	r := f.runner(t, f.local)

	_, err := r.Start(context.Background(), quiz.TestType("enneagram"), quiz.English)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownTestType))
}
