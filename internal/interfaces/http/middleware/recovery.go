package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
	dto "github.com/turtacn/PersonaQuiz/pkg/types/quiz"
)

// Recovery turns a handler panic into a 500 with the standard error body.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.Error("Panic recovered",
				logging.String("panic", fmt.Sprint(rec)),
				logging.String("path", c.Request.URL.Path),
				logging.String("request_id", GetRequestID(c)),
				logging.String("stack", string(debug.Stack())))
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
				Code:      string(errors.ErrCodeInternal),
				Message:   errors.DefaultMessageForCode(errors.ErrCodeInternal),
				RequestID: GetRequestID(c),
			})
		}()
		c.Next()
	}
}
