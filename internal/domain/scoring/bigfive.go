package scoring

import (
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
)

// BigFiveFactors: Openness, Conscientiousness, Extraversion, Agreeableness,
// Neuroticism.
var BigFiveFactors = []quiz.Factor{"O", "C", "E", "A", "N"}

// BigFiveScale is the Likert scale of Big Five items.
var BigFiveScale = quiz.Scale{Min: 1, Max: 5}

type bigFiveRule struct{}

// NewBigFiveRule returns the Big Five scoring rule. It reports five
// independent magnitudes and derives no label.
func NewBigFiveRule() Rule { return bigFiveRule{} }

func (bigFiveRule) Factors() []quiz.Factor { return BigFiveFactors }

func (bigFiveRule) Tally(v quiz.ScoreVector, q quiz.Question, a quiz.Answer) (quiz.ScoreVector, error) {
	return scaleTally(v, q, a, BigFiveScale, BigFiveFactors)
}

func (bigFiveRule) Finalize(v quiz.ScoreVector, counts map[quiz.Factor]int) (Outcome, error) {
	if err := checkVector(v, BigFiveFactors); err != nil {
		return Outcome{}, err
	}
	return Outcome{Magnitudes: magnitudes(v, counts, BigFiveFactors, BigFiveScale.Max)}, nil
}
