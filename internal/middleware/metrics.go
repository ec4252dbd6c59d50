package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jecrcuniv/nodues-api/internal/service"
)

// Metrics records request duration and count per route template. Unmatched
// requests are bucketed together to keep label cardinality bounded.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
