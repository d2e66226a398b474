// Package session models one participant's run through a test as an explicit,
// immutable state value. Every transition returns a new State; the receiver is
// never modified.
package session

import (
	"strconv"
	"time"

	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/domain/scoring"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// Phase is the coarse lifecycle position of a session.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"
)

// State is a snapshot of a session at one point in its lifecycle.
type State struct {
	SessionID string
	Test      catalog.Definition
	Language  quiz.Language
	Phase     Phase
	Questions []quiz.Question
	Index     int
	Scores    quiz.ScoreVector
	Answers   []quiz.Answer
	// Result is set once the session reaches PhaseCompleted.
	Result *quiz.Result
}

// New returns a session in the loading phase.
func New(sessionID string, t quiz.TestType, lang quiz.Language) (State, error) {
	if sessionID == "" {
		return State{}, errors.InvalidParam("session id is required")
	}
	def, err := catalog.Lookup(t)
	if err != nil {
		return State{}, err
	}
	l, _ := quiz.ParseLanguage(string(lang))
	return State{
		SessionID: sessionID,
		Test:      def,
		Language:  l,
		Phase:     PhaseLoading,
	}, nil
}

// Begin moves a loading session to question 0 of the given set.
func (s State) Begin(questions []quiz.Question) (State, error) {
	if s.Phase != PhaseLoading {
		return s, errors.Newf(errors.ErrCodeConflict, "cannot begin a session in phase %s", s.Phase)
	}
	if err := checkQuestions(s.Test, questions); err != nil {
		return s, err
	}
	out := s
	out.Phase = PhaseInProgress
	out.Questions = append([]quiz.Question(nil), questions...)
	out.Index = 0
	out.Scores = s.Test.EmptyScores()
	out.Answers = []quiz.Answer{}
	return out, nil
}

// Current returns the question awaiting an answer.
func (s State) Current() (quiz.Question, bool) {
	if s.Phase != PhaseInProgress || s.Index >= len(s.Questions) {
		return quiz.Question{}, false
	}
	return s.Questions[s.Index], true
}

// Total is the number of questions in the session.
func (s State) Total() int { return len(s.Questions) }

// Submit records the answer to the current question and advances the index by
// one. Answering the last question completes the session and finalizes the
// result at now.
func (s State) Submit(a quiz.Answer, now time.Time) (State, error) {
	switch s.Phase {
	case PhaseCompleted:
		return s, errors.New(errors.ErrCodeSessionCompleted, "session already completed")
	case PhaseInProgress:
		if s.Index < len(s.Questions) {
			break
		}
		fallthrough
	default:
		return s, errors.New(errors.ErrCodeSessionNotStarted, "session has not started")
	}
	q := s.Questions[s.Index]
	if a.QuestionID == "" {
		a.QuestionID = q.ID
	}
	if a.QuestionID != q.ID {
		return s, errors.New(errors.ErrCodeAnswerOutOfOrder, "answer does not match the current question").
			WithDetail("expected=" + q.ID + " got=" + a.QuestionID)
	}
	if q.Format() == quiz.FormatScale {
		a.Factor = q.Factor
	}

	scores, err := s.Test.Rule.Tally(s.Scores, q, a)
	if err != nil {
		return s, err
	}

	out := s
	out.Scores = scores
	out.Answers = append(append(make([]quiz.Answer, 0, len(s.Answers)+1), s.Answers...), a)
	out.Index = s.Index + 1
	if out.Index == len(out.Questions) {
		return out.Finalize(now)
	}
	return out, nil
}

// Finalize scores a session whose every question has been answered.
func (s State) Finalize(now time.Time) (State, error) {
	if s.Phase == PhaseCompleted {
		return s, errors.New(errors.ErrCodeSessionCompleted, "session already completed")
	}
	if s.Phase != PhaseInProgress {
		return s, errors.New(errors.ErrCodeSessionNotStarted, "session has not started")
	}
	if s.Index != len(s.Questions) {
		return s, errors.Newf(errors.ErrCodeConflict, "%d of %d questions answered", s.Index, len(s.Questions))
	}

	outcome, err := s.Test.Rule.Finalize(s.Scores, scoring.Counts(s.Questions))
	if err != nil {
		return s, err
	}
	if s.Test.DerivesProfile() {
		if _, err := scoring.LookupProfile(s.Test.Type, outcome.ProfileKey); err != nil {
			return s, err
		}
	}

	out := s
	out.Phase = PhaseCompleted
	out.Result = &quiz.Result{
		SessionID:   s.SessionID,
		TestType:    s.Test.Type,
		Language:    s.Language,
		Scores:      s.Scores.Clone(),
		Magnitudes:  outcome.Magnitudes,
		ProfileKey:  outcome.ProfileKey,
		CompletedAt: now.UTC(),
		Timestamp:   now.UnixMilli(),
	}
	return out, nil
}

// Snapshot mirrors the session as a resumable checkpoint stamped at now.
func (s State) Snapshot(now time.Time) quiz.ProgressSnapshot {
	return quiz.ProgressSnapshot{
		SessionID: s.SessionID,
		TestType:  s.Test.Type,
		Language:  s.Language,
		Index:     s.Index,
		Scores:    s.Scores.Clone(),
		Answers:   append([]quiz.Answer(nil), s.Answers...),
		Timestamp: now.UnixMilli(),
	}
}

func checkQuestions(def catalog.Definition, questions []quiz.Question) error {
	if len(questions) == 0 {
		return errors.InvalidTestData("question set is empty").WithDetail("test=" + string(def.Type))
	}
	seen := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			return errors.InvalidTestData("question without id").WithDetail("index=" + strconv.Itoa(i))
		}
		if _, dup := seen[q.ID]; dup {
			return errors.InvalidTestData("duplicate question id").WithDetail("id=" + q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.Format() != def.Format {
			return errors.InvalidTestData("question format does not match the test").WithDetail("id=" + q.ID)
		}
		if q.Format() == quiz.FormatScale && !def.HasFactor(q.Factor) {
			return errors.InvalidTestData("question factor not part of the test").WithDetail("id=" + q.ID)
		}
		for _, o := range q.Options {
			if !def.HasFactor(o.Factor) {
				return errors.InvalidTestData("option factor not part of the test").WithDetail("id=" + q.ID)
			}
		}
	}
	return nil
}
