package scoring

import (
	"strings"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// Axis is one MBTI dichotomy. First wins ties.
type Axis struct {
	First  quiz.Factor
	Second quiz.Factor
}

// MBTIAxes in label order.
var MBTIAxes = []Axis{
	{First: "E", Second: "I"},
	{First: "S", Second: "N"},
	{First: "T", Second: "F"},
	{First: "J", Second: "P"},
}

// MBTIFactors lists all eight MBTI letters in axis order.
var MBTIFactors = []quiz.Factor{"E", "I", "S", "N", "T", "F", "J", "P"}

// MBTIType picks, for each axis, the letter with the greater-or-equal tally.
// Ties favour E, S, T and J.
func MBTIType(v quiz.ScoreVector) string {
	var sb strings.Builder
	for _, ax := range MBTIAxes {
		if v[ax.First] >= v[ax.Second] {
			sb.WriteString(string(ax.First))
		} else {
			sb.WriteString(string(ax.Second))
		}
	}
	return sb.String()
}

type mbtiRule struct{}

// NewMBTIRule returns the MBTI scoring rule.
func NewMBTIRule() Rule { return mbtiRule{} }

func (mbtiRule) Factors() []quiz.Factor { return MBTIFactors }

func (mbtiRule) Tally(v quiz.ScoreVector, q quiz.Question, a quiz.Answer) (quiz.ScoreVector, error) {
	if q.Format() != quiz.FormatForcedChoice {
		return nil, errors.InvalidTestData("MBTI question has no options").WithDetail("question=" + q.ID)
	}
	if !q.HasOption(a.Factor) {
		return nil, errors.Newf(errors.ErrCodeInvalidAnswer, "choice %q is not an option of question %s", a.Factor, q.ID)
	}
	if !containsFactor(MBTIFactors, a.Factor) {
		return nil, errors.InvalidTestData("option factor not part of the test").WithDetail("factor=" + string(a.Factor))
	}
	out := v.Clone()
	out[a.Factor]++
	return out, nil
}

func (mbtiRule) Finalize(v quiz.ScoreVector, counts map[quiz.Factor]int) (Outcome, error) {
	if err := checkVector(v, MBTIFactors); err != nil {
		return Outcome{}, err
	}
	key := MBTIType(v)
	if _, err := LookupProfile(quiz.TestMBTI, key); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		ProfileKey: key,
		Magnitudes: magnitudes(v, counts, MBTIFactors, 1),
	}, nil
}
