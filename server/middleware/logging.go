package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/workerbridge/logger"
)

var quietPaths = map[string]bool{
	"/health": true,
	"/alive":  true,
	"/ready":  true,
}

// RequestLogger logs each request with its status and latency. Health
// probes are skipped.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if quietPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": latency.String(),
			"client":  c.ClientIP(),
		}
		if id, ok := c.Get(KeyRequestID); ok {
			fields[KeyRequestID] = id
		}
		if route := c.FullPath(); route != "" {
			fields["route"] = route
		}
		if latency > 500*time.Millisecond {
			fields["slow"] = true
		}

		switch {
		case status >= 500:
			log.Error("Request completed", fields)
		case status >= 400:
			log.Warn("Request completed", fields)
		default:
			log.Debug("Request completed", fields)
		}
	}
}
