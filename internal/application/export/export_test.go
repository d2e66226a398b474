package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/redis"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/storage/minio"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

type mockResults struct{ mock.Mock }

func (m *mockResults) Get(ctx context.Context, sessionID string, t quiz.TestType) (*quiz.Result, error) {
	args := m.Called(ctx, sessionID, t)
	if r := args.Get(0); r != nil {
		return r.(*quiz.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockObjects struct{ mock.Mock }

func (m *mockObjects) Upload(ctx context.Context, req *minio.UploadRequest) (*minio.UploadResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*minio.UploadResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockObjects) GetMetadata(ctx context.Context, key string) (*minio.ObjectMetadata, error) {
	args := m.Called(ctx, key)
	if r := args.Get(0); r != nil {
		return r.(*minio.ObjectMetadata), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockObjects) GetPresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

var completedAt = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func discResult() *quiz.Result {
	return &quiz.Result{
		SessionID: "sess-1",
		TestType:  quiz.TestDISC,
		Language:  quiz.Portuguese,
		Scores:    quiz.ScoreVector{"D": 9, "I": 4, "S": 3, "C": 2},
		Magnitudes: []quiz.FactorScore{
			{Factor: "D", Score: 9, Max: 18}, {Factor: "I", Score: 4, Max: 18},
			{Factor: "S", Score: 3, Max: 18}, {Factor: "C", Score: 2, Max: 18},
		},
		ProfileKey:  "D",
		CompletedAt: completedAt,
		Timestamp:   completedAt.UnixMilli(),
	}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "exports/mbti/abc-es.pdf", ObjectKey(quiz.TestMBTI, "abc", quiz.Spanish))
}

func TestRender(t *testing.T) {
	for _, lang := range quiz.Languages {
		t.Run(string(lang), func(t *testing.T) {
			data, err := Render(*discResult(), lang)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
		})
	}
}

func TestRender_WithoutMagnitudes(t *testing.T) {
	r := discResult()
	r.Magnitudes = nil
	data, err := Render(*r, quiz.English)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRender_BigFiveHasNoProfile(t *testing.T) {
	r := quiz.Result{
		SessionID:   "s",
		TestType:    quiz.TestBigFive,
		Scores:      quiz.ScoreVector{"O": 10, "C": 8, "E": 6, "A": 12, "N": 4},
		CompletedAt: completedAt,
	}
	_, err := Render(r, quiz.English)
	require.NoError(t, err)
}

func TestRender_UnknownProfile(t *testing.T) {
	r := discResult()
	r.ProfileKey = "Z"
	_, err := Render(*r, quiz.English)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTestData))
}

func TestRender_UnknownTestType(t *testing.T) {
	_, err := Render(quiz.Result{TestType: "enneagram"}, quiz.English)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownTestType))
}

func newTestService(results *mockResults, objects *mockObjects, opts ...Option) *Service {
	s := NewService(results, objects, opts...)
	s.now = func() time.Time { return completedAt }
	return s
}

func TestExport_RendersAndPresigns(t *testing.T) {
	results, objects := new(mockResults), new(mockObjects)
	key := "exports/disc/sess-1-en.pdf"

	results.On("Get", mock.Anything, "sess-1", quiz.TestDISC).Return(discResult(), nil)
	objects.On("GetMetadata", mock.Anything, key).Return(nil, minio.ErrObjectNotFound)
	objects.On("Upload", mock.Anything, mock.MatchedBy(func(req *minio.UploadRequest) bool {
		return req.ObjectKey == key &&
			req.ContentType == ContentType &&
			req.Metadata[metaCompletedAt] == "1709289000000" &&
			bytes.HasPrefix(req.Data, []byte("%PDF-"))
	})).Return(&minio.UploadResult{ObjectKey: key}, nil)
	objects.On("GetPresignedDownloadURL", mock.Anything, key, time.Hour).Return("https://minio/exports/x?sig", nil)

	resp, err := newTestService(results, objects).Export(context.Background(), "sess-1", quiz.TestDISC, quiz.English)
	require.NoError(t, err)
	assert.Equal(t, key, resp.ObjectKey)
	assert.Equal(t, "https://minio/exports/x?sig", resp.URL)
	assert.Equal(t, "2024-03-01T11:30:00Z", resp.ExpiresAt)
	objects.AssertExpectations(t)
}

func TestExport_SkipsCurrentObject(t *testing.T) {
	results, objects := new(mockResults), new(mockObjects)
	key := "exports/disc/sess-1-pt.pdf"

	results.On("Get", mock.Anything, "sess-1", quiz.TestDISC).Return(discResult(), nil)
	objects.On("GetMetadata", mock.Anything, key).Return(&minio.ObjectMetadata{
		ObjectKey: key,
		Metadata:  map[string]string{"Completed-At": "1709289000000"},
	}, nil)
	objects.On("GetPresignedDownloadURL", mock.Anything, key, 10*time.Minute).Return("u", nil)

	svc := newTestService(results, objects, WithURLExpiry(10*time.Minute))
	_, err := svc.Export(context.Background(), "sess-1", quiz.TestDISC, quiz.Portuguese)
	require.NoError(t, err)
	objects.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestExport_StaleObjectIsReplaced(t *testing.T) {
	results, objects := new(mockResults), new(mockObjects)
	key := "exports/disc/sess-1-en.pdf"

	results.On("Get", mock.Anything, "sess-1", quiz.TestDISC).Return(discResult(), nil)
	objects.On("GetMetadata", mock.Anything, key).Return(&minio.ObjectMetadata{
		Metadata: map[string]string{"Completed-At": "1"},
	}, nil)
	objects.On("Upload", mock.Anything, mock.Anything).Return(&minio.UploadResult{}, nil)
	objects.On("GetPresignedDownloadURL", mock.Anything, key, time.Hour).Return("u", nil)

	_, err := newTestService(results, objects).Export(context.Background(), "sess-1", quiz.TestDISC, quiz.English)
	require.NoError(t, err)
	objects.AssertNumberOfCalls(t, "Upload", 1)
}

func TestExport_ResultNotFound(t *testing.T) {
	results, objects := new(mockResults), new(mockObjects)
	results.On("Get", mock.Anything, "nope", quiz.TestMBTI).Return(nil, errors.NotFound("result not found"))

	_, err := newTestService(results, objects).Export(context.Background(), "nope", quiz.TestMBTI, quiz.English)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestExport_InvalidProfileIsNotRetried(t *testing.T) {
	results, objects := new(mockResults), new(mockObjects)
	r := discResult()
	r.ProfileKey = "Q"
	results.On("Get", mock.Anything, "sess-1", quiz.TestDISC).Return(r, nil)
	objects.On("GetMetadata", mock.Anything, mock.Anything).Return(nil, minio.ErrObjectNotFound)

	_, err := newTestService(results, objects).Export(context.Background(), "sess-1", quiz.TestDISC, quiz.English)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTestData))
}

func TestPrerender_UsesResultLanguageAndLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(&redis.RedisConfig{Mode: "standalone", Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	results, objects := new(mockResults), new(mockObjects)
	key := "exports/disc/sess-1-pt.pdf"
	results.On("Get", mock.Anything, "sess-1", quiz.TestDISC).Return(discResult(), nil)
	objects.On("GetMetadata", mock.Anything, key).Return(nil, minio.ErrObjectNotFound)
	objects.On("Upload", mock.Anything, mock.MatchedBy(func(req *minio.UploadRequest) bool {
		return req.ObjectKey == key
	})).Return(&minio.UploadResult{}, nil)

	svc := newTestService(results, objects, WithLocker(redis.NewLocker(client, logging.NewNopLogger())))
	require.NoError(t, svc.Prerender(context.Background(), "sess-1", quiz.TestDISC))
	objects.AssertExpectations(t)

	for _, k := range mr.Keys() {
		assert.False(t, strings.HasPrefix(k, "pquiz:lock:"), "lock %s left behind", k)
	}
}

func TestPrerender_LockHeldElsewhere(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(&redis.RedisConfig{Mode: "standalone", Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set("pquiz:lock:export:exports/disc/sess-1-pt.pdf", "other"))

	results, objects := new(mockResults), new(mockObjects)
	results.On("Get", mock.Anything, "sess-1", quiz.TestDISC).Return(discResult(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	svc := newTestService(results, objects, WithLocker(redis.NewLocker(client, logging.NewNopLogger())))
	err = svc.Prerender(ctx, "sess-1", quiz.TestDISC)
	require.Error(t, err)
	objects.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}
