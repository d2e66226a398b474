// Package scoring implements the fixed-formula scoring of each personality
// model: how one answer updates a score vector, and how a finished vector is
// turned into a profile label and per-factor magnitudes.
//
// Every function in this package is pure.
package scoring

import (
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// Outcome is the finalized scoring of a completed test.
type Outcome struct {
	// ProfileKey is the derived label ("DI", "INTJ"). Empty for Big Five.
	ProfileKey string
	Magnitudes []quiz.FactorScore
}

// Rule scores one personality model.
type Rule interface {
	// Tally returns a new vector with the answer applied. The input vector is
	// never modified.
	Tally(v quiz.ScoreVector, q quiz.Question, a quiz.Answer) (quiz.ScoreVector, error)

	// Finalize derives the outcome from a completed vector. counts holds the
	// number of questions feeding each factor.
	Finalize(v quiz.ScoreVector, counts map[quiz.Factor]int) (Outcome, error)

	// Factors returns the model's factors in enumeration order.
	Factors() []quiz.Factor
}

// Counts returns, per factor, how many questions can feed it. Scale items count
// toward their factor; forced-choice items count toward each option's factor.
func Counts(questions []quiz.Question) map[quiz.Factor]int {
	out := make(map[quiz.Factor]int)
	for _, q := range questions {
		if q.Format() == quiz.FormatForcedChoice {
			for _, o := range q.Options {
				out[o.Factor]++
			}
			continue
		}
		out[q.Factor]++
	}
	return out
}

// ReverseScore inverts a Likert rating: ReverseScore(r, max) + r == max + 1.
func ReverseScore(rating, scaleMax int) int {
	return scaleMax + 1 - rating
}

// scaleTally applies a Likert answer to the question's factor, inverting it for
// reverse-keyed items.
func scaleTally(v quiz.ScoreVector, q quiz.Question, a quiz.Answer, scale quiz.Scale, factors []quiz.Factor) (quiz.ScoreVector, error) {
	if !containsFactor(factors, q.Factor) {
		return nil, errors.InvalidTestData("question factor not part of the test").
			WithDetail("question=" + q.ID + " factor=" + string(q.Factor))
	}
	if !scale.Contains(a.Rating) {
		return nil, errors.Newf(errors.ErrCodeInvalidAnswer, "rating %d outside scale %d..%d", a.Rating, scale.Min, scale.Max)
	}
	points := a.Rating
	if q.Reverse {
		points = ReverseScore(a.Rating, scale.Max)
	}
	out := v.Clone()
	out[q.Factor] += points
	return out, nil
}

// checkVector rejects vectors carrying unknown factors or negative tallies.
func checkVector(v quiz.ScoreVector, factors []quiz.Factor) error {
	for f, n := range v {
		if !containsFactor(factors, f) {
			return errors.InvalidTestData("score vector has unknown factor").WithDetail("factor=" + string(f))
		}
		if n < 0 {
			return errors.InvalidTestData("score vector has a negative tally").WithDetail("factor=" + string(f))
		}
	}
	return nil
}

func magnitudes(v quiz.ScoreVector, counts map[quiz.Factor]int, factors []quiz.Factor, perItemMax int) []quiz.FactorScore {
	out := make([]quiz.FactorScore, 0, len(factors))
	for _, f := range factors {
		out = append(out, quiz.FactorScore{Factor: f, Score: v[f], Max: counts[f] * perItemMax})
	}
	return out
}

func containsFactor(factors []quiz.Factor, f quiz.Factor) bool {
	for _, x := range factors {
		if x == f {
			return true
		}
	}
	return false
}
