package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/postgres"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// ResultRepo stores one result per (session, test type). A later result for
// the same pair replaces the earlier one.
type ResultRepo struct {
	executor queryExecutor
	log      logging.Logger
	metrics  *prometheus.AppMetrics
}

// NewResultRepo builds a repository over conn.
func NewResultRepo(conn *postgres.Connection, log logging.Logger, metrics *prometheus.AppMetrics) *ResultRepo {
	if metrics == nil {
		metrics = prometheus.NewNopMetrics()
	}
	return &ResultRepo{executor: conn.DB(), log: log, metrics: metrics}
}

const upsertResult = `
	INSERT INTO results (id, session_id, test_type, language, scores, magnitudes, profile_key, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (session_id, test_type) DO UPDATE SET
		language = EXCLUDED.language,
		scores = EXCLUDED.scores,
		magnitudes = EXCLUDED.magnitudes,
		profile_key = EXCLUDED.profile_key,
		completed_at = EXCLUDED.completed_at,
		updated_at = NOW()`

// Upsert inserts r or supersedes the stored result of the same session and test.
func (r *ResultRepo) Upsert(ctx context.Context, res quiz.Result) (err error) {
	start := time.Now()
	defer func() { prometheus.RecordDBQuery(r.metrics, "postgres", "results_upsert", time.Since(start), err) }()

	scores, err := json.Marshal(res.Scores)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode scores")
	}
	mags := res.Magnitudes
	if mags == nil {
		mags = []quiz.FactorScore{}
	}
	magnitudes, err := json.Marshal(mags)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode magnitudes")
	}

	_, err = r.executor.ExecContext(ctx, upsertResult,
		uuid.New(), res.SessionID, string(res.TestType), string(res.Language),
		scores, magnitudes, nullString(res.ProfileKey), res.CompletedAt.UTC(),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert result")
	}
	return nil
}

const selectResult = `
	SELECT session_id, test_type, language, scores, magnitudes, profile_key, completed_at
	FROM results WHERE session_id = $1 AND test_type = $2`

// Get returns the stored result or a NotFound error.
func (r *ResultRepo) Get(ctx context.Context, sessionID string, t quiz.TestType) (res *quiz.Result, err error) {
	start := time.Now()
	defer func() { prometheus.RecordDBQuery(r.metrics, "postgres", "results_get", time.Since(start), err) }()

	row := r.executor.QueryRowContext(ctx, selectResult, sessionID, string(t))
	res, err = scanResult(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("result not found").WithDetail(sessionID + "/" + string(t))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get result")
	}
	return res, nil
}

func scanResult(row scanner) (*quiz.Result, error) {
	var (
		res        quiz.Result
		testType   string
		language   string
		scores     []byte
		magnitudes []byte
		profile    sql.NullString
	)
	if err := row.Scan(&res.SessionID, &testType, &language, &scores, &magnitudes, &profile, &res.CompletedAt); err != nil {
		return nil, err
	}
	res.TestType = quiz.TestType(testType)
	res.Language = quiz.Language(language)
	res.ProfileKey = profile.String
	res.CompletedAt = res.CompletedAt.UTC()
	res.Timestamp = res.CompletedAt.UnixMilli()
	if err := json.Unmarshal(scores, &res.Scores); err != nil {
		return nil, err
	}
	if len(magnitudes) > 0 {
		if err := json.Unmarshal(magnitudes, &res.Magnitudes); err != nil {
			return nil, err
		}
	}
	return &res, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
