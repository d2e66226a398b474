package questions

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"path"

	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

//go:embed data/*.json
var dataFS embed.FS

// SetFile is the on-disk shape of a bundled question set.
type SetFile struct {
	TestType  quiz.TestType   `json:"testType"`
	Format    quiz.ItemFormat `json:"format"`
	Scale     *quiz.Scale     `json:"scale,omitempty"`
	Questions []quiz.Question `json:"questions"`
}

// Bundled serves the question sets compiled into the binary. Sets are parsed
// and validated once, on construction.
type Bundled struct {
	sets map[quiz.TestType][]quiz.Question
}

// NewBundled loads every embedded set. A set that fails validation is an
// InvalidTestData error.
func NewBundled() (*Bundled, error) {
	b := &Bundled{sets: make(map[quiz.TestType][]quiz.Question, len(quiz.TestTypes))}
	for _, t := range quiz.TestTypes {
		raw, err := dataFS.ReadFile(path.Join("data", string(t)+".json"))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidTestData, "bundled question set missing: "+string(t))
		}
		set, err := ParseSet(raw)
		if err != nil {
			return nil, err
		}
		if set.TestType != t {
			return nil, errors.InvalidTestData("bundled set has the wrong test type").
				WithDetail(fmt.Sprintf("file=%s.json testType=%s", t, set.TestType))
		}
		b.sets[t] = set.Questions
	}
	return b, nil
}

// Questions returns a copy of the bundled set for t with every translation
// intact. Callers localize.
func (b *Bundled) Questions(_ context.Context, t quiz.TestType, _ quiz.Language) ([]quiz.Question, error) {
	qs, ok := b.sets[t]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownTestType, "no bundled questions").WithDetail("test=" + string(t))
	}
	return append([]quiz.Question(nil), qs...), nil
}

// Sets returns every bundled set keyed by test type, for seeding.
func (b *Bundled) Sets() map[quiz.TestType][]quiz.Question {
	out := make(map[quiz.TestType][]quiz.Question, len(b.sets))
	for t, qs := range b.sets {
		out[t] = append([]quiz.Question(nil), qs...)
	}
	return out
}

// ParseSet decodes and validates a question set document.
func ParseSet(raw []byte) (*SetFile, error) {
	if err := validateDocument(setSchemaRef, raw); err != nil {
		return nil, err
	}
	var set SetFile
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&set); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidTestData, "decode question set")
	}
	def, err := catalog.Lookup(set.TestType)
	if err != nil {
		return nil, err
	}
	if set.Format != def.Format {
		return nil, errors.InvalidTestData("question set format does not match the test").
			WithDetail("format=" + string(set.Format))
	}
	if set.Scale != nil && *set.Scale != def.Scale {
		return nil, errors.InvalidTestData("question set scale does not match the test").
			WithDetail(fmt.Sprintf("scale=%d..%d", set.Scale.Min, set.Scale.Max))
	}
	if err := Validate(def, set.Questions); err != nil {
		return nil, err
	}
	return &set, nil
}
