package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agendahub/notifier/pkg/logger"
)

// RequestLogger logs every request on the operational HTTP surface. The
// surface is small (health, readiness, QR, metrics) so bodies are never
// captured.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	httpLog := log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"request_id", c.GetString(ContextRequestID),
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}

		switch {
		case status >= 500:
			httpLog.Error(nil, "server error", fields...)
		case status >= 400:
			httpLog.Warn("client error", fields...)
		default:
			httpLog.Info("request processed", fields...)
		}
	}
}
