package questions

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

const (
	schemaURL     = "https://personaquiz.dev/schema/questions.json"
	setSchemaRef  = schemaURL
	listSchemaRef = schemaURL + "#/$defs/questionList"
)

var (
	schemaOnce sync.Once
	schemas    map[string]*jsonschema.Schema
	schemaErr  error
)

func compiledSchemas() (map[string]*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := dataFS.ReadFile("data/schema.json")
		if err != nil {
			schemaErr = fmt.Errorf("read question schema: %w", err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			schemaErr = fmt.Errorf("parse question schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add question schema: %w", err)
			return
		}
		out := make(map[string]*jsonschema.Schema, 2)
		for _, ref := range []string{setSchemaRef, listSchemaRef} {
			s, err := c.Compile(ref)
			if err != nil {
				schemaErr = fmt.Errorf("compile %s: %w", ref, err)
				return
			}
			out[ref] = s
		}
		schemas = out
	})
	return schemas, schemaErr
}

func validateDocument(ref string, raw []byte) error {
	all, err := compiledSchemas()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "question schema unavailable")
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidTestData, "question payload is not JSON")
	}
	if err := all[ref].Validate(inst); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidTestData, "question payload fails schema")
	}
	return nil
}

// ValidateList checks a raw JSON array of questions, as served by
// GET /questions, against the question schema.
func ValidateList(raw []byte) error {
	return validateDocument(listSchemaRef, raw)
}

// Validate applies the semantic checks the schema cannot express: positions
// run 0..N-1 in order, ids are unique, every factor belongs to the test and
// each item matches the test's format.
func Validate(def catalog.Definition, qs []quiz.Question) error {
	if len(qs) == 0 {
		return errors.InvalidTestData("question set is empty").WithDetail("test=" + string(def.Type))
	}
	seen := make(map[string]struct{}, len(qs))
	for i, q := range qs {
		if q.Position != i {
			return invalid(q, fmt.Sprintf("position %d at index %d", q.Position, i))
		}
		if _, dup := seen[q.ID]; dup {
			return invalid(q, "duplicate id")
		}
		seen[q.ID] = struct{}{}
		if q.Format() != def.Format {
			return invalid(q, "format "+string(q.Format()))
		}

		switch q.Format() {
		case quiz.FormatScale:
			if !def.HasFactor(q.Factor) {
				return invalid(q, "factor "+string(q.Factor))
			}
			if q.Text.In(quiz.English) == "" {
				return invalid(q, "missing text")
			}
		case quiz.FormatForcedChoice:
			if len(q.Options) != 2 || q.Options[0].Factor == q.Options[1].Factor {
				return invalid(q, "forced choice needs two distinct options")
			}
			if q.Reverse {
				return invalid(q, "forced choice cannot be reverse scored")
			}
			for _, o := range q.Options {
				if !def.HasFactor(o.Factor) {
					return invalid(q, "option factor "+string(o.Factor))
				}
				if o.Text.In(quiz.English) == "" {
					return invalid(q, "missing option text")
				}
			}
		}
	}
	return nil
}

func invalid(q quiz.Question, why string) error {
	return errors.InvalidTestData("invalid question").WithDetail("id=" + q.ID + ": " + why)
}
