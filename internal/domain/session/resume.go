package session

import (
	"time"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// ResumeOutcome says what Resume did with a snapshot.
type ResumeOutcome string

const (
	// ResumeNone means there was no snapshot to restore.
	ResumeNone ResumeOutcome = "none"
	// ResumeRestored means the session continues from the snapshot.
	ResumeRestored ResumeOutcome = "restored"
	// ResumeExpired means the snapshot was older than the freshness window.
	ResumeExpired ResumeOutcome = "expired"
	// ResumeDiscarded means the snapshot was malformed or did not match the
	// question set.
	ResumeDiscarded ResumeOutcome = "discarded"
)

// Resume restores a freshly begun session from snap. The recorded answers are
// replayed against the question set and the resulting scores must equal the
// snapshot's; anything else discards the snapshot and the session stays at
// index 0. The returned error explains a discard and is informational only.
func (s State) Resume(snap *quiz.ProgressSnapshot, now time.Time, window time.Duration) (State, ResumeOutcome, error) {
	if snap == nil {
		return s, ResumeNone, nil
	}
	if s.Phase != PhaseInProgress || s.Index != 0 {
		return s, ResumeDiscarded, errors.New(errors.ErrCodeConflict, "resume requires a freshly begun session")
	}
	if snap.Expired(now, window) {
		return s, ResumeExpired, nil
	}
	if err := snap.Validate(); err != nil {
		return s, ResumeDiscarded, malformed(err.Error())
	}
	if snap.TestType != s.Test.Type {
		return s, ResumeDiscarded, malformed("snapshot belongs to test " + string(snap.TestType))
	}
	if snap.SessionID != "" && snap.SessionID != s.SessionID {
		return s, ResumeDiscarded, malformed("snapshot belongs to another session")
	}
	if snap.Index >= len(s.Questions) {
		return s, ResumeDiscarded, malformed("snapshot index beyond the last question")
	}

	out := s
	for _, a := range snap.Answers {
		next, err := out.Submit(a, now)
		if err != nil {
			return s, ResumeDiscarded, malformed("replay failed").WithCause(err)
		}
		out = next
	}
	if !out.Scores.Equal(normalize(snap.Scores, s.Test.EmptyScores())) {
		return s, ResumeDiscarded, malformed("snapshot scores do not match its answers")
	}
	if lang, ok := quiz.ParseLanguage(string(snap.Language)); ok {
		out.Language = lang
	}
	return out, ResumeRestored, nil
}

// normalize fills factors missing from v with zero so that a snapshot written
// with sparse scores compares equal to a replayed vector.
func normalize(v, zero quiz.ScoreVector) quiz.ScoreVector {
	out := zero.Clone()
	for f, n := range v {
		out[f] = n
	}
	return out
}

func malformed(msg string) *errors.AppError {
	return errors.New(errors.ErrCodeSnapshotMalformed, msg)
}
