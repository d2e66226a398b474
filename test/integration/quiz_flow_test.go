//go:build integration

// Package integration runs the quiz flow against a real PostgreSQL container.
// Tests require Docker and are gated behind the "integration" build tag.
package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/PersonaQuiz/internal/application/persistence"
	"github.com/turtacn/PersonaQuiz/internal/application/questions"
	"github.com/turtacn/PersonaQuiz/internal/application/runner"
	"github.com/turtacn/PersonaQuiz/internal/application/submission"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/postgres"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/redis"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/sqlite"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/PersonaQuiz/internal/interfaces/http"
	"github.com/turtacn/PersonaQuiz/internal/interfaces/http/handlers"
	"github.com/turtacn/PersonaQuiz/pkg/client"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
	dto "github.com/turtacn/PersonaQuiz/pkg/types/quiz"
)

// startPostgres launches a PostgreSQL 16 container and returns a migrated
// connection.
func startPostgres(t *testing.T) *postgres.Connection {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "personaquiz_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	conn, err := postgres.NewConnection(postgres.PostgresConfig{
		Host:     host,
		Port:     port.Int(),
		Database: "personaquiz_test",
		Username: "test",
		Password: "test",
		SSLMode:  "disable",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.RunMigrations())
	return conn
}

type stack struct {
	questions *repositories.QuestionRepo
	results   *repositories.ResultRepo
	client    *client.Client
}

// startServer serves the full API over httptest, backed by conn and an
// in-memory Redis.
func startServer(t *testing.T, conn *postgres.Connection) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logging.NewNopLogger()

	mr := miniredis.RunT(t)
	rdb, err := redis.NewClient(&redis.RedisConfig{Mode: "standalone", Addr: mr.Addr()}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	questionRepo := repositories.NewQuestionRepo(conn, log, nil)
	resultRepo := repositories.NewResultRepo(conn, log, nil)

	bundled, err := questions.NewBundled()
	require.NoError(t, err)
	cache := redis.NewQuestionCache(rdb, log, "it:", time.Minute)
	provider := questions.NewProvider(bundled,
		questions.WithRemote(questions.NewCachedSource(questionRepo, cache, log, nil)))

	progress := redis.NewProgressStore(rdb, "it:", time.Hour, log)
	submissions := submission.NewService(progress, resultRepo, nil, provider,
		submission.Config{FreshnessWindow: time.Hour}, log, nil)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		QuestionHandler: handlers.NewQuestionHandler(provider, log),
		ResultHandler:   handlers.NewResultHandler(submissions, nil),
		HealthHandler:   handlers.NewHealthHandler("it", nil),
		Logger:          log,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	c, err := client.NewClient(srv.URL, client.WithRetryMax(0))
	require.NoError(t, err)
	return &stack{questions: questionRepo, results: resultRepo, client: c}
}

func TestQuizFlow_RemotePersistence(t *testing.T) {
	s := startServer(t, startPostgres(t))
	ctx := context.Background()

	bundled, err := questions.NewBundled()
	require.NoError(t, err)
	for tt, qs := range bundled.Sets() {
		require.NoError(t, s.questions.ReplaceSet(ctx, tt, qs))
	}
	n, err := s.questions.Count(ctx, quiz.TestMBTI)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	kv, err := sqlite.Open(filepath.Join(t.TempDir(), "local.db"), logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	store := persistence.NewTiered(persistence.NewRemote(s.client), persistence.NewLocal(kv))
	provider := questions.NewProvider(bundled, questions.WithRemote(questions.NewRemote(s.client)))
	r := runner.New(provider, store, runner.WithSessionIDs(func() string { return "it-session" }))

	_, err = r.Start(ctx, quiz.TestMBTI, quiz.Spanish)
	require.NoError(t, err)
	assert.Equal(t, questions.SourceRemote, r.Source())

	for i := 0; i < 3; i++ {
		q, ok := r.Current()
		require.True(t, ok)
		_, err := r.Answer(ctx, quiz.Answer{QuestionID: q.ID, Factor: q.Options[1].Factor})
		require.NoError(t, err)
	}
	snap, err := s.client.GetProgress(ctx, "it-session", "mbti")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.CurrentQuestion)

	var done bool
	for !done {
		q, ok := r.Current()
		require.True(t, ok)
		done, err = r.Answer(ctx, quiz.Answer{QuestionID: q.ID, Factor: q.Options[1].Factor})
		require.NoError(t, err)
	}

	remote, err := s.client.GetResult(ctx, "it-session", "mbti", "es")
	require.NoError(t, err)
	assert.Equal(t, "INFP", remote.ProfileKey)
	assert.NotEmpty(t, remote.ProfileName)

	stored, err := s.results.Get(ctx, "it-session", quiz.TestMBTI)
	require.NoError(t, err)
	assert.Equal(t, quiz.Spanish, stored.Language)
}

func TestQuizFlow_RejectsUncataloguedProfile(t *testing.T) {
	s := startServer(t, startPostgres(t))
	ctx := context.Background()

	err := s.client.SaveResult(ctx, &dto.SaveResultRequest{
		SessionID:  "bad",
		TestID:     "mbti",
		Scores:     map[string]int{"E": 4, "I": 0, "S": 4, "N": 0, "T": 4, "F": 0, "J": 4, "P": 0},
		ProfileKey: "XXXX",
	})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, string(errors.ErrCodeInvalidTestData), apiErr.Code)

	_, err = s.results.Get(ctx, "bad", quiz.TestMBTI)
	assert.True(t, errors.IsNotFound(err))

	_, err = s.client.GetResult(ctx, "bad", "mbti", "en")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
