package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-tales/pkg/logger"
	"github.com/d60-Lab/travel-tales/pkg/response"
)

// Recovery turns panics into 500s, logs them and reports to Sentry when a
// client is configured.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error("panic recovered",
				zap.Any("panic", rec),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", RequestIDFrom(c)),
				zap.ByteString("stack", debug.Stack()))

			if hub := sentry.CurrentHub(); hub.Client() != nil {
				hub = hub.Clone()
				hub.Scope().SetRequest(c.Request)
				hub.Scope().SetTag("request_id", RequestIDFrom(c))
				hub.RecoverWithContext(c.Request.Context(), rec)
				hub.Flush(2 * time.Second)
			}

			if c.Writer.Written() {
				c.Abort()
				return
			}
			_ = c.Error(fmt.Errorf("panic: %v", rec))
			response.Fail(c, http.StatusInternalServerError, "server error")
		}()
		c.Next()
	}
}

// ReportErrors sends 5xx handler errors collected on the context to Sentry.
func ReportErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() < http.StatusInternalServerError || len(c.Errors) == 0 {
			return
		}
		hub := sentry.CurrentHub()
		if hub.Client() == nil {
			return
		}
		hub = hub.Clone()
		hub.Scope().SetRequest(c.Request)
		hub.Scope().SetTag("request_id", RequestIDFrom(c))
		for _, e := range c.Errors {
			hub.CaptureException(e.Err)
		}
	}
}
