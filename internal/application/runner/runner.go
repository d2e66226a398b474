// Package runner drives one participant through a test: it loads the
// question set, resumes a fresh local snapshot, records answers and persists
// progress and the final result.
//
// A Runner holds one session and is not safe for concurrent use.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/PersonaQuiz/internal/application/persistence"
	"github.com/turtacn/PersonaQuiz/internal/application/questions"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/domain/session"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// Loader returns the question set of a test in a language.
type Loader interface {
	Load(ctx context.Context, t quiz.TestType, lang quiz.Language) (*questions.Set, error)
}

// Runner orchestrates a single session.
type Runner struct {
	loader  Loader
	store   persistence.LocalStore
	window  time.Duration
	now     func() time.Time
	newID   func() string
	logger  logging.Logger
	metrics *prometheus.AppMetrics

	state  session.State
	source string
}

// Option configures a Runner.
type Option func(*Runner)

// WithFreshnessWindow overrides quiz.DefaultFreshnessWindow.
func WithFreshnessWindow(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// WithSessionIDs replaces the uuid session id generator.
func WithSessionIDs(newID func() string) Option { return func(r *Runner) { r.newID = newID } }

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *prometheus.AppMetrics) Option { return func(r *Runner) { r.metrics = m } }

// New creates a Runner.
func New(loader Loader, store persistence.LocalStore, opts ...Option) *Runner {
	r := &Runner{
		loader:  loader,
		store:   store,
		window:  quiz.DefaultFreshnessWindow,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  logging.NewNopLogger(),
		metrics: prometheus.NewNopMetrics(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start loads the questions of t and resumes from the local snapshot when it
// is fresh and consistent. Otherwise the session starts at the first
// question and the stale snapshot is cleared.
func (r *Runner) Start(ctx context.Context, t quiz.TestType, lang quiz.Language) (session.ResumeOutcome, error) {
	snap, err := r.store.LoadProgress(ctx, t)
	if err != nil {
		r.logger.Warn("local progress unreadable, starting over", logging.String("test_type", string(t)), logging.Err(err))
		snap = nil
	}

	id := r.newID()
	if snap != nil && snap.SessionID != "" {
		id = snap.SessionID
	}
	st, err := session.New(id, t, lang)
	if err != nil {
		return session.ResumeNone, err
	}

	set, err := r.loader.Load(ctx, t, st.Language)
	if err != nil {
		return session.ResumeNone, err
	}
	st, err = st.Begin(set.Questions)
	if err != nil {
		return session.ResumeNone, err
	}

	resumed, outcome, rerr := st.Resume(snap, r.now(), r.window)
	switch outcome {
	case session.ResumeDiscarded:
		r.logger.Warn("discarding progress snapshot", logging.String("test_type", string(t)), logging.Err(rerr))
		r.clear(ctx, t)
	case session.ResumeExpired:
		r.logger.Info("progress snapshot expired", logging.String("test_type", string(t)))
		r.clear(ctx, t)
	case session.ResumeRestored:
		r.logger.Info("resumed session",
			logging.String("session_id", resumed.SessionID),
			logging.String("test_type", string(t)),
			logging.Int("index", resumed.Index))
	}
	if outcome != session.ResumeRestored && snap != nil && resumed.SessionID == snap.SessionID {
		resumed.SessionID = r.newID()
	}
	// Questions are already localized to the requested language.
	resumed.Language = st.Language
	r.metrics.SessionResumesTotal.WithLabelValues(string(t), string(outcome)).Inc()

	r.state = resumed
	r.source = set.Source
	return outcome, nil
}

// Answer records a for the current question. Progress is saved best effort;
// on the last answer the result is saved and the snapshot cleared. It reports
// whether the session completed.
func (r *Runner) Answer(ctx context.Context, a quiz.Answer) (bool, error) {
	now := r.now()
	next, err := r.state.Submit(a, now)
	if err != nil {
		return false, err
	}
	r.state = next
	t := next.Test.Type

	if next.Phase != session.PhaseCompleted {
		snap := next.Snapshot(now)
		if err := r.store.SaveProgress(ctx, snap); err != nil {
			r.logger.Warn("progress not saved", logging.String("test_type", string(t)), logging.Err(err))
			r.metrics.ProgressSavesTotal.WithLabelValues(string(t), "failed").Inc()
		} else {
			r.metrics.ProgressSavesTotal.WithLabelValues(string(t), "local").Inc()
		}
		return false, nil
	}

	res := *next.Result
	if err := r.store.SaveResult(ctx, res); err != nil {
		return true, errors.Wrap(err, errors.ErrCodeDatabaseError, "save result")
	}
	r.clear(ctx, t)
	prometheus.RecordResultCompleted(r.metrics, string(t), res.ProfileKey)
	r.logger.Info("test completed",
		logging.String("session_id", res.SessionID),
		logging.String("test_type", string(t)),
		logging.String("profile", res.ProfileKey))
	return true, nil
}

// Current returns the question awaiting an answer.
func (r *Runner) Current() (quiz.Question, bool) { return r.state.Current() }

// Result returns the finalized result once the session completed.
func (r *Runner) Result() (*quiz.Result, bool) {
	if r.state.Result == nil {
		return nil, false
	}
	res := *r.state.Result
	return &res, true
}

// State returns the current session state.
func (r *Runner) State() session.State { return r.state }

// Progress returns the number of answered questions and the total.
func (r *Runner) Progress() (int, int) { return r.state.Index, r.state.Total() }

// Language is the session language after negotiation and resume.
func (r *Runner) Language() quiz.Language { return r.state.Language }

// Source names where the questions came from.
func (r *Runner) Source() string { return r.source }

func (r *Runner) clear(ctx context.Context, t quiz.TestType) {
	if err := r.store.ClearProgress(ctx, t); err != nil {
		r.logger.Warn("progress not cleared", logging.String("test_type", string(t)), logging.Err(err))
	}
}
