package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/logger"
)

// Recovery recovers from handler panics, logs the stack and answers 500.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("Panic recovered", map[string]interface{}{
					"error":     fmt.Sprintf("%v", rec),
					"stack":     string(debug.Stack()),
					"path":      c.Request.URL.Path,
					"method":    c.Request.Method,
					"client_ip": c.ClientIP(),
				})
				err := errors.Internal(fmt.Errorf("panic: %v", rec))
				c.AbortWithStatusJSON(errors.HTTPStatus(err), errors.HTTPBody(err))
			}
		}()
		c.Next()
	}
}
