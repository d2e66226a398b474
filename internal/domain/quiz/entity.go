// Package quiz holds the core value types of a personality test: questions,
// answers, score vectors, results and resumable progress snapshots.
package quiz

import (
	"sort"
	"strings"
	"time"
)

// TestType identifies a personality model.
type TestType string

const (
	TestDISC    TestType = "disc"
	TestMBTI    TestType = "mbti"
	TestBigFive TestType = "bigfive"
)

// TestTypes lists every supported test type in display order.
var TestTypes = []TestType{TestDISC, TestMBTI, TestBigFive}

// Valid reports whether t is a supported test type.
func (t TestType) Valid() bool {
	switch t {
	case TestDISC, TestMBTI, TestBigFive:
		return true
	}
	return false
}

func (t TestType) String() string { return string(t) }

// ParseTestType normalises user input ("DISC", "big5", "big-five") to a TestType.
func ParseTestType(s string) (TestType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disc":
		return TestDISC, true
	case "mbti":
		return TestMBTI, true
	case "bigfive", "big5", "big-five", "big_five", "ocean":
		return TestBigFive, true
	}
	return "", false
}

// Factor is one scored axis of a personality model (D, I, S, C or O, C, E, A, N).
type Factor string

// ItemFormat describes how a question is answered.
type ItemFormat string

const (
	// FormatScale items carry a single factor and take a Likert rating.
	FormatScale ItemFormat = "scale"
	// FormatForcedChoice items offer two options, each tied to a factor.
	FormatForcedChoice ItemFormat = "forced_choice"
)

// Scale is an inclusive Likert rating range.
type Scale struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether rating lies within the scale.
func (s Scale) Contains(rating int) bool {
	return rating >= s.Min && rating <= s.Max
}

// Option is one side of a forced-choice question.
type Option struct {
	Factor Factor        `json:"factor"`
	Text   LocalizedText `json:"text"`
}

// Question is immutable once loaded.
type Question struct {
	ID       string        `json:"id"`
	Position int           `json:"position"`
	Factor   Factor        `json:"factor,omitempty"`
	Reverse  bool          `json:"reverse,omitempty"`
	Text     LocalizedText `json:"text,omitempty"`
	Options  []Option      `json:"options,omitempty"`
}

// Format infers the item format from the question's shape.
func (q Question) Format() ItemFormat {
	if len(q.Options) > 0 {
		return FormatForcedChoice
	}
	return FormatScale
}

// HasOption reports whether f is one of the question's forced-choice options.
func (q Question) HasOption(f Factor) bool {
	for _, o := range q.Options {
		if o.Factor == f {
			return true
		}
	}
	return false
}

// Localize returns a copy of q whose texts only carry lang (falling back to
// English when lang is missing).
func (q Question) Localize(lang Language) Question {
	out := q
	if len(q.Text) > 0 {
		out.Text = LocalizedText{lang: q.Text.In(lang)}
	}
	if len(q.Options) > 0 {
		out.Options = make([]Option, len(q.Options))
		for i, o := range q.Options {
			out.Options[i] = Option{Factor: o.Factor, Text: LocalizedText{lang: o.Text.In(lang)}}
		}
	}
	return out
}

// Answer is recorded once per question and never mutated.
type Answer struct {
	QuestionID string `json:"questionId"`
	Factor     Factor `json:"factor,omitempty"`
	Rating     int    `json:"rating,omitempty"`
}

// ScoreVector maps each factor to its accumulated tally.
type ScoreVector map[Factor]int

// NewScoreVector returns a vector with every factor set to zero.
func NewScoreVector(factors []Factor) ScoreVector {
	v := make(ScoreVector, len(factors))
	for _, f := range factors {
		v[f] = 0
	}
	return v
}

// Clone returns an independent copy of v.
func (v ScoreVector) Clone() ScoreVector {
	out := make(ScoreVector, len(v))
	for k, n := range v {
		out[k] = n
	}
	return out
}

// Equal reports whether v and o hold the same tallies.
func (v ScoreVector) Equal(o ScoreVector) bool {
	if len(v) != len(o) {
		return false
	}
	for k, n := range v {
		m, ok := o[k]
		if !ok || m != n {
			return false
		}
	}
	return true
}

// Factors returns the vector's keys in lexical order.
func (v ScoreVector) Factors() []Factor {
	out := make([]Factor, 0, len(v))
	for f := range v {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FactorScore reports one factor's final magnitude against its maximum.
type FactorScore struct {
	Factor Factor `json:"factor"`
	Score  int    `json:"score"`
	Max    int    `json:"max"`
}

// Percent returns Score as a percentage of Max, or 0 when Max is zero.
func (f FactorScore) Percent() float64 {
	if f.Max <= 0 {
		return 0
	}
	return float64(f.Score) * 100 / float64(f.Max)
}

// Result is the outcome of one completed test run. A later run of the same
// test type supersedes it.
type Result struct {
	SessionID   string        `json:"sessionId"`
	TestType    TestType      `json:"testId"`
	Language    Language      `json:"language"`
	Scores      ScoreVector   `json:"scores"`
	Magnitudes  []FactorScore `json:"magnitudes"`
	ProfileKey  string        `json:"profileKey,omitempty"`
	CompletedAt time.Time     `json:"completedAt"`
	Timestamp   int64         `json:"timestamp"`
}

// HasProfile reports whether the test derives a profile label.
func (r Result) HasProfile() bool { return r.ProfileKey != "" }
