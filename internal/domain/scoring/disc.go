package scoring

import (
	"sort"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
)

// DISCFactors in enumeration order. Ranking ties resolve in this order.
var DISCFactors = []quiz.Factor{"D", "I", "S", "C"}

// DISCPureThreshold is the gap above which a single factor is dominant.
const DISCPureThreshold = 4

// DISCScale is the Likert scale of DISC items.
var DISCScale = quiz.Scale{Min: 1, Max: 4}

// RankDISC orders the DISC factors by descending score, keeping enumeration
// order among equal scores.
func RankDISC(v quiz.ScoreVector) []quiz.Factor {
	ranked := append([]quiz.Factor(nil), DISCFactors...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return v[ranked[i]] > v[ranked[j]]
	})
	return ranked
}

// DISCLabel derives the profile key: the top factor alone when it leads the
// runner-up by more than DISCPureThreshold, otherwise the top two factors in
// descending order. Only the top two are ever considered.
func DISCLabel(v quiz.ScoreVector) string {
	ranked := RankDISC(v)
	top, second := ranked[0], ranked[1]
	if v[top]-v[second] > DISCPureThreshold {
		return string(top)
	}
	return string(top) + string(second)
}

type discRule struct{}

// NewDISCRule returns the DISC scoring rule.
func NewDISCRule() Rule { return discRule{} }

func (discRule) Factors() []quiz.Factor { return DISCFactors }

func (discRule) Tally(v quiz.ScoreVector, q quiz.Question, a quiz.Answer) (quiz.ScoreVector, error) {
	return scaleTally(v, q, a, DISCScale, DISCFactors)
}

func (discRule) Finalize(v quiz.ScoreVector, counts map[quiz.Factor]int) (Outcome, error) {
	if err := checkVector(v, DISCFactors); err != nil {
		return Outcome{}, err
	}
	key := DISCLabel(v)
	if _, err := LookupProfile(quiz.TestDISC, key); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		ProfileKey: key,
		Magnitudes: magnitudes(v, counts, DISCFactors, DISCScale.Max),
	}, nil
}
