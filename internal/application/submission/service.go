// Package submission implements the server side of progress and result
// writes: validation against the catalog, storage, and the completion event.
package submission

import (
	"context"
	"time"

	"github.com/turtacn/PersonaQuiz/internal/application/questions"
	"github.com/turtacn/PersonaQuiz/internal/application/wire"
	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/domain/scoring"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
	dto "github.com/turtacn/PersonaQuiz/pkg/types/quiz"
)

// ProgressStore keeps in-progress snapshots.
type ProgressStore interface {
	Save(ctx context.Context, snap quiz.ProgressSnapshot) error
	Load(ctx context.Context, sessionID string, t quiz.TestType) (*quiz.ProgressSnapshot, error)
	Clear(ctx context.Context, sessionID string, t quiz.TestType) error
}

// ResultStore keeps the latest result per session and test.
type ResultStore interface {
	Upsert(ctx context.Context, r quiz.Result) error
	Get(ctx context.Context, sessionID string, t quiz.TestType) (*quiz.Result, error)
}

// EventPublisher announces completed results.
type EventPublisher interface {
	PublishResultCompleted(ctx context.Context, r quiz.Result) error
}

// SetLoader loads the question set a result was scored against.
type SetLoader interface {
	Load(ctx context.Context, t quiz.TestType, lang quiz.Language) (*questions.Set, error)
}

// Config tunes the service.
type Config struct {
	// FreshnessWindow bounds how old a served snapshot may be.
	FreshnessWindow time.Duration
}

// Service validates and stores submissions.
type Service struct {
	progress  ProgressStore
	results   ResultStore
	publisher EventPublisher
	sets      SetLoader
	cfg       Config
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
	now       func() time.Time
}

// NewService wires the service. publisher may be nil when messaging is off.
func NewService(progress ProgressStore, results ResultStore, publisher EventPublisher, sets SetLoader,
	cfg Config, logger logging.Logger, metrics *prometheus.AppMetrics) *Service {
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = time.Hour
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopMetrics()
	}
	return &Service{
		progress:  progress,
		results:   results,
		publisher: publisher,
		sets:      sets,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// SaveProgress replaces the snapshot of the request's session and test.
func (s *Service) SaveProgress(ctx context.Context, req *dto.SaveProgressRequest, lang quiz.Language) error {
	if err := req.Validate(); err != nil {
		return errors.InvalidParam(err.Error())
	}
	def, err := catalog.Lookup(quiz.TestType(req.TestID))
	if err != nil {
		return err
	}
	if err := checkFactors(def, req.Scores); err != nil {
		return err
	}
	snap := wire.SnapshotFromRequest(req, lang, s.now())
	if err := snap.Validate(); err != nil {
		return errors.InvalidParam(err.Error())
	}
	if err := s.progress.Save(ctx, snap); err != nil {
		return err
	}
	s.logger.Debug("Progress saved",
		logging.String("session_id", snap.SessionID),
		logging.String("test_type", string(snap.TestType)),
		logging.Int("index", snap.Index))
	return nil
}

// GetProgress returns the fresh snapshot, or NotFound when there is none or
// it has outlived the freshness window.
func (s *Service) GetProgress(ctx context.Context, sessionID string, t quiz.TestType) (*quiz.ProgressSnapshot, error) {
	if _, err := catalog.Lookup(t); err != nil {
		return nil, err
	}
	snap, err := s.progress.Load(ctx, sessionID, t)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errors.NotFound("no saved progress").WithDetail("session=" + sessionID)
	}
	if snap.Expired(s.now(), s.cfg.FreshnessWindow) || snap.Validate() != nil {
		return nil, errors.NotFound("no saved progress").WithDetail("session=" + sessionID)
	}
	return snap, nil
}

// SaveResult validates, stores and announces a completed result. It
// supersedes any earlier result of the same session and test and clears the
// session's progress.
func (s *Service) SaveResult(ctx context.Context, req *dto.SaveResultRequest, lang quiz.Language) (*quiz.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}
	t := quiz.TestType(req.TestID)
	def, err := catalog.Lookup(t)
	if err != nil {
		return nil, err
	}
	if err := checkFactors(def, req.Scores); err != nil {
		return nil, err
	}

	key := req.Key()
	if key != "" {
		if !def.DerivesProfile() {
			return nil, errors.InvalidTestData("test does not derive a profile").WithDetail("profile=" + key)
		}
		if _, err := scoring.LookupProfile(t, key); err != nil {
			return nil, err
		}
	}

	scores := def.EmptyScores()
	for f, n := range wire.ScoresFromDTO(req.Scores) {
		scores[f] = n
	}
	set, err := s.sets.Load(ctx, t, lang)
	if err != nil {
		return nil, err
	}
	outcome, err := def.Rule.Finalize(scores, scoring.Counts(set.Questions))
	if err != nil {
		return nil, err
	}
	switch {
	case key == "":
		key = outcome.ProfileKey
	case key != outcome.ProfileKey:
		s.logger.Warn("Submitted profile differs from derived profile, keeping derived",
			logging.String("session_id", req.SessionID),
			logging.String("submitted", key),
			logging.String("derived", outcome.ProfileKey))
		key = outcome.ProfileKey
	}

	completedAt := s.now().UTC()
	if req.Timestamp > 0 {
		completedAt = time.UnixMilli(req.Timestamp).UTC()
	}
	r := quiz.Result{
		SessionID:   req.SessionID,
		TestType:    t,
		Language:    lang,
		Scores:      scores,
		Magnitudes:  outcome.Magnitudes,
		ProfileKey:  key,
		CompletedAt: completedAt,
		Timestamp:   completedAt.UnixMilli(),
	}
	if err := s.results.Upsert(ctx, r); err != nil {
		return nil, err
	}

	if err := s.progress.Clear(ctx, r.SessionID, t); err != nil {
		s.logger.Warn("Failed to clear progress after result", logging.String("session_id", r.SessionID), logging.Err(err))
	}
	if s.publisher != nil {
		if err := s.publisher.PublishResultCompleted(ctx, r); err != nil {
			s.logger.Error("Failed to publish result event", logging.String("session_id", r.SessionID), logging.Err(err))
		}
	}
	prometheus.RecordResultCompleted(s.metrics, string(t), key)

	s.logger.Info("Result saved",
		logging.String("session_id", r.SessionID),
		logging.String("test_type", string(t)),
		logging.String("profile", key))
	return &r, nil
}

// GetResult returns the latest stored result.
func (s *Service) GetResult(ctx context.Context, sessionID string, t quiz.TestType) (*quiz.Result, error) {
	if _, err := catalog.Lookup(t); err != nil {
		return nil, err
	}
	return s.results.Get(ctx, sessionID, t)
}

func checkFactors(def catalog.Definition, scores map[string]int) error {
	for f, n := range scores {
		if !def.HasFactor(quiz.Factor(f)) {
			return errors.InvalidTestData("score names a factor outside the test").WithDetail("factor=" + f)
		}
		if n < 0 {
			return errors.InvalidParam("negative score").WithDetail("factor=" + f)
		}
	}
	return nil
}
