// Package handlers implements the gin handlers of the quiz API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/internal/interfaces/http/middleware"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
	dto "github.com/turtacn/PersonaQuiz/pkg/types/quiz"
)

// requestLanguage picks the response language: ?lang=, then Accept-Language.
func requestLanguage(c *gin.Context) quiz.Language {
	return quiz.NegotiateLanguage(c.Query("lang"), c.GetHeader("Accept-Language"))
}

// bodyLanguage prefers a supported language named in the body.
func bodyLanguage(c *gin.Context, declared string) quiz.Language {
	if l, ok := quiz.ParseLanguage(declared); ok {
		return l
	}
	return requestLanguage(c)
}

// testTypeParam resolves :testType, writing a 404 when it is unknown.
func testTypeParam(c *gin.Context) (quiz.TestType, bool) {
	t, ok := quiz.ParseTestType(c.Param("testType"))
	if !ok {
		writeAppError(c, errors.New(errors.ErrCodeUnknownTestType, "unknown test type").WithDetail(c.Param("testType")))
		return "", false
	}
	return t, true
}

// bindJSON decodes the body, writing a 400 on failure.
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeAppError(c, errors.InvalidParam("malformed request body").WithDetail(err.Error()))
		return false
	}
	return true
}

// writeAppError maps err to its HTTP status and the standard error body.
// Server-side failures are masked; their cause goes to the log only.
func writeAppError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	resp := dto.ErrorResponse{
		Code:      string(code),
		RequestID: middleware.GetRequestID(c),
	}

	var ae *errors.AppError
	if status >= http.StatusInternalServerError || !errors.As(err, &ae) {
		resp.Message = errors.DefaultMessageForCode(code)
		logging.FromContext(c.Request.Context()).Error("Request failed",
			logging.String("path", c.FullPath()),
			logging.String("code", string(code)),
			logging.Err(err))
	} else {
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}
