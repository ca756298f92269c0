package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/internship-affectation/internal/service"
)

// Metrics returns middleware that captures request metrics using the provided service.
// Scrapes of skipPath are not recorded.
func Metrics(metricsSvc *service.MetricsService, skipPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || (skipPath != "" && c.Request.URL.Path == skipPath) {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
