// Package catalog is the single configuration table keyed by test type. Each
// entry carries the test's factor set, item format, rating scale, scoring rule
// and the UI copy keys used to present it.
package catalog

import (
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/domain/scoring"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// CopyKeys name the localized UI strings of a test.
type CopyKeys struct {
	Title         string
	Intro         string
	Prompt        string
	ResultHeading string
}

// Definition configures one test type.
type Definition struct {
	Type    quiz.TestType
	Factors []quiz.Factor
	Format  quiz.ItemFormat
	// Scale is the Likert range of scale items; zero for forced choice.
	Scale quiz.Scale
	Rule  scoring.Rule
	Copy  CopyKeys
}

// HasFactor reports whether f belongs to the test.
func (d Definition) HasFactor(f quiz.Factor) bool {
	for _, x := range d.Factors {
		if x == f {
			return true
		}
	}
	return false
}

// EmptyScores returns a zeroed score vector over the test's factors.
func (d Definition) EmptyScores() quiz.ScoreVector {
	return quiz.NewScoreVector(d.Factors)
}

// DerivesProfile reports whether finalizing the test yields a profile key.
func (d Definition) DerivesProfile() bool {
	return d.Type != quiz.TestBigFive
}

var definitions = map[quiz.TestType]Definition{
	quiz.TestDISC: {
		Type:    quiz.TestDISC,
		Factors: scoring.DISCFactors,
		Format:  quiz.FormatScale,
		Scale:   scoring.DISCScale,
		Rule:    scoring.NewDISCRule(),
		Copy: CopyKeys{
			Title:         "disc.title",
			Intro:         "disc.intro",
			Prompt:        "prompt.scale4",
			ResultHeading: "disc.result",
		},
	},
	quiz.TestMBTI: {
		Type:    quiz.TestMBTI,
		Factors: scoring.MBTIFactors,
		Format:  quiz.FormatForcedChoice,
		Rule:    scoring.NewMBTIRule(),
		Copy: CopyKeys{
			Title:         "mbti.title",
			Intro:         "mbti.intro",
			Prompt:        "prompt.choice",
			ResultHeading: "mbti.result",
		},
	},
	quiz.TestBigFive: {
		Type:    quiz.TestBigFive,
		Factors: scoring.BigFiveFactors,
		Format:  quiz.FormatScale,
		Scale:   scoring.BigFiveScale,
		Rule:    scoring.NewBigFiveRule(),
		Copy: CopyKeys{
			Title:         "bigfive.title",
			Intro:         "bigfive.intro",
			Prompt:        "prompt.scale5",
			ResultHeading: "bigfive.result",
		},
	},
}

// Lookup returns the definition of t.
func Lookup(t quiz.TestType) (Definition, error) {
	d, ok := definitions[t]
	if !ok {
		return Definition{}, errors.New(errors.ErrCodeUnknownTestType, "unknown test type").
			WithDetail("test=" + string(t))
	}
	return d, nil
}

// MustLookup is Lookup for test types known at compile time.
func MustLookup(t quiz.TestType) Definition {
	d, err := Lookup(t)
	if err != nil {
		panic(err)
	}
	return d
}

// All returns every definition in display order.
func All() []Definition {
	out := make([]Definition, 0, len(quiz.TestTypes))
	for _, t := range quiz.TestTypes {
		out = append(out, definitions[t])
	}
	return out
}
