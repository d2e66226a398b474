package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/postgres"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// QuestionRepo serves question sets stored one row per question, the full
// question (every translation) kept as a JSONB payload.
type QuestionRepo struct {
	conn     *postgres.Connection
	executor queryExecutor
	log      logging.Logger
	metrics  *prometheus.AppMetrics
}

// NewQuestionRepo builds a repository over conn.
func NewQuestionRepo(conn *postgres.Connection, log logging.Logger, metrics *prometheus.AppMetrics) *QuestionRepo {
	if metrics == nil {
		metrics = prometheus.NewNopMetrics()
	}
	return &QuestionRepo{conn: conn, executor: conn.DB(), log: log, metrics: metrics}
}

// Questions returns the set of t ordered by position. The language is ignored:
// every stored question carries all translations. An empty table is a
// NotFound error so that callers fall back to the bundled set.
func (r *QuestionRepo) Questions(ctx context.Context, t quiz.TestType, _ quiz.Language) (qs []quiz.Question, err error) {
	start := time.Now()
	defer func() { prometheus.RecordDBQuery(r.metrics, "postgres", "questions_list", time.Since(start), err) }()

	rows, err := r.executor.QueryContext(ctx,
		`SELECT payload FROM questions WHERE test_type = $1 ORDER BY position`, string(t))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query questions")
	}
	defer rows.Close()

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan question")
		}
		var q quiz.Question
		if err := json.Unmarshal(payload, &q); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidTestData, "stored question is not valid JSON")
		}
		qs = append(qs, q)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate questions")
	}
	if len(qs) == 0 {
		return nil, errors.NotFound("no stored questions for " + string(t))
	}
	return qs, nil
}

// ReplaceSet swaps the stored set of t for qs in one transaction.
func (r *QuestionRepo) ReplaceSet(ctx context.Context, t quiz.TestType, qs []quiz.Question) error {
	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE test_type = $1`, string(t)); err != nil {
		tx.Rollback()
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to clear questions")
	}
	for _, q := range qs {
		payload, err := json.Marshal(q)
		if err != nil {
			tx.Rollback()
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode question")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (test_type, position, payload) VALUES ($1, $2, $3)`,
			string(t), q.Position, payload); err != nil {
			tx.Rollback()
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert question "+q.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	r.log.Info("Replaced question set", logging.String("test_type", string(t)), logging.Int("count", len(qs)))
	return nil
}

// Count returns the number of stored questions of t.
func (r *QuestionRepo) Count(ctx context.Context, t quiz.TestType) (int, error) {
	var n int
	if err := r.executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE test_type = $1`, string(t)).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count questions")
	}
	return n, nil
}
