package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/PersonaQuiz/internal/application/wire"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	dto "github.com/turtacn/PersonaQuiz/pkg/types/quiz"
)

// Submissions is the progress and result service.
type Submissions interface {
	SaveProgress(ctx context.Context, req *dto.SaveProgressRequest, lang quiz.Language) error
	GetProgress(ctx context.Context, sessionID string, t quiz.TestType) (*quiz.ProgressSnapshot, error)
	SaveResult(ctx context.Context, req *dto.SaveResultRequest, lang quiz.Language) (*quiz.Result, error)
	GetResult(ctx context.Context, sessionID string, t quiz.TestType) (*quiz.Result, error)
}

// Exporter renders results to downloadable documents.
type Exporter interface {
	Export(ctx context.Context, sessionID string, t quiz.TestType, lang quiz.Language) (*dto.ExportResponse, error)
}

// ResultHandler serves progress, results and exports.
type ResultHandler struct {
	submissions Submissions
	exporter    Exporter
}

// NewResultHandler builds the handler. A nil exporter disables the export
// route.
func NewResultHandler(s Submissions, e Exporter) *ResultHandler {
	return &ResultHandler{submissions: s, exporter: e}
}

// SaveProgress handles POST /save-progress.
func (h *ResultHandler) SaveProgress(c *gin.Context) {
	var req dto.SaveProgressRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.submissions.SaveProgress(c.Request.Context(), &req, bodyLanguage(c, req.Language)); err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.StatusResponse{Status: "saved"})
}

// GetProgress handles GET /progress/:sessionId/:testType.
func (h *ResultHandler) GetProgress(c *gin.Context) {
	t, ok := testTypeParam(c)
	if !ok {
		return
	}
	snap, err := h.submissions.GetProgress(c.Request.Context(), c.Param("sessionId"), t)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.ProgressRequest(*snap))
}

// SaveResult handles POST /save-result.
func (h *ResultHandler) SaveResult(c *gin.Context) {
	var req dto.SaveResultRequest
	if !bindJSON(c, &req) {
		return
	}
	lang := bodyLanguage(c, req.Language)
	r, err := h.submissions.SaveResult(c.Request.Context(), &req, lang)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeResult(c, http.StatusCreated, *r, lang)
}

// GetResult handles GET /results/:sessionId/:testType.
func (h *ResultHandler) GetResult(c *gin.Context) {
	t, ok := testTypeParam(c)
	if !ok {
		return
	}
	r, err := h.submissions.GetResult(c.Request.Context(), c.Param("sessionId"), t)
	if err != nil {
		writeAppError(c, err)
		return
	}
	lang := r.Language
	if c.Query("lang") != "" || !lang.Valid() {
		lang = requestLanguage(c)
	}
	writeResult(c, http.StatusOK, *r, lang)
}

// writeResult renders r for lang. A stored profile key that is no longer
// catalogued fails with QUIZ_001 instead of an unnamed profile.
func writeResult(c *gin.Context, status int, r quiz.Result, lang quiz.Language) {
	out, err := wire.ResultToDTO(r, lang)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(status, out)
}

// Export handles POST /results/:sessionId/:testType/export.
func (h *ResultHandler) Export(c *gin.Context) {
	t, ok := testTypeParam(c)
	if !ok {
		return
	}
	resp, err := h.exporter.Export(c.Request.Context(), c.Param("sessionId"), t, requestLanguage(c))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
