package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"recipe-aggregator/internal/infrastructure/metrics"
)

// Metrics 以路由樣板記錄請求數與延遲
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
