package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"flashtrade/internal/util"
	"flashtrade/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery converts a handler panic into a 500 response. The stack trace
// goes to the log, never to the client.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			requestID, _ := c.Get("request_id")
			log.WithFields(map[string]interface{}{
				"request_id": requestID,
				"panic":      r,
				"stack":      string(debug.Stack()),
			}).Error("Panic recovered", fmt.Errorf("%v", r))

			util.SendCustomError(c, http.StatusInternalServerError,
				util.ErrCodeInternal, "Internal server error")
			c.Abort()
		}()

		c.Next()
	}
}
