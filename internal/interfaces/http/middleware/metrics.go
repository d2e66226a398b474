package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request count, latency and response size per route
// template. Unmatched routes share one label so scanners cannot blow up
// cardinality.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		size := c.Writer.Size()
		if size < 0 {
			size = 0
		}
		prometheus.RecordHTTPRequest(m, c.Request.Method, path, c.Writer.Status(), time.Since(start), int64(size))
	}
}
