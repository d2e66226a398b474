package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
)

const (
	// HeaderRequestID carries the request id in both directions.
	HeaderRequestID = "X-Request-ID"

	requestIDKey = "request_id"
)

type requestIDCtxKey struct{}

// RequestID reuses an incoming X-Request-ID or assigns a new uuid, echoes it
// on the response and stores it on both the gin and the request context. A
// request-scoped logger tagged with the id is attached via logging.WithContext.
func RequestID(logger logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)

		ctx := context.WithValue(c.Request.Context(), requestIDCtxKey{}, id)
		ctx = logging.WithContext(ctx, logger.With(logging.String("request_id", id)))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestIDFromContext returns the id stored on a request context.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}
