package questions

import (
	"context"

	"github.com/turtacn/PersonaQuiz/internal/application/wire"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	dto "github.com/turtacn/PersonaQuiz/pkg/types/quiz"
)

// API is the part of the HTTP client the remote source uses.
type API interface {
	GetQuestions(ctx context.Context, testType, lang string) ([]dto.Question, error)
}

// Remote fetches question sets from the PersonaQuiz API.
type Remote struct {
	api API
}

// NewRemote adapts api.
func NewRemote(api API) *Remote { return &Remote{api: api} }

func (r *Remote) Questions(ctx context.Context, t quiz.TestType, lang quiz.Language) ([]quiz.Question, error) {
	qs, err := r.api.GetQuestions(ctx, string(t), string(lang))
	if err != nil {
		return nil, err
	}
	return wire.QuestionsFromDTO(qs), nil
}
