package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/PersonaQuiz/internal/application/questions"
	"github.com/turtacn/PersonaQuiz/internal/application/wire"
	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	dto "github.com/turtacn/PersonaQuiz/pkg/types/quiz"
)

// QuestionLoader loads a validated question set.
type QuestionLoader interface {
	Load(ctx context.Context, t quiz.TestType, lang quiz.Language) (*questions.Set, error)
}

// QuestionHandler serves the test catalog and question sets.
type QuestionHandler struct {
	loader QuestionLoader
	logger logging.Logger
}

func NewQuestionHandler(loader QuestionLoader, logger logging.Logger) *QuestionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &QuestionHandler{loader: loader, logger: logger}
}

// GetQuestions handles GET /questions/:testType.
func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	t, ok := testTypeParam(c)
	if !ok {
		return
	}
	lang := requestLanguage(c)
	set, err := h.loader.Load(c.Request.Context(), t, lang)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.Header("Content-Language", string(lang))
	c.Header("X-Question-Source", set.Source)
	c.JSON(http.StatusOK, wire.QuestionsToDTO(set.Questions))
}

// ListTests handles GET /tests.
func (h *QuestionHandler) ListTests(c *gin.Context) {
	lang := requestLanguage(c)
	defs := catalog.All()
	out := make([]dto.TestInfo, 0, len(defs))
	for _, def := range defs {
		info := dto.TestInfo{
			ID:       string(def.Type),
			Title:    catalog.Message(lang, def.Copy.Title),
			Format:   string(def.Format),
			ScaleMin: def.Scale.Min,
			ScaleMax: def.Scale.Max,
		}
		for _, f := range def.Factors {
			info.Factors = append(info.Factors, string(f))
		}
		if set, err := h.loader.Load(c.Request.Context(), def.Type, lang); err == nil {
			info.Questions = len(set.Questions)
		} else {
			h.logger.Warn("Question count unavailable", logging.String("test_type", string(def.Type)), logging.Err(err))
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, out)
}
