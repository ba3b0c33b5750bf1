package endpoint

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/workerbridge/observability"
)

// HealthChecker builds the current health report.
type HealthChecker func(ctx context.Context) *observability.ServiceHealth

// Health answers 200 while the service is up or degraded and 503 when down.
func Health(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := checker(c.Request.Context())
		status := http.StatusOK
		if report.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	}
}
