package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessRecorder receives one record per request, best effort. Implemented
// by the access log repository; errors are the recorder's problem and must
// never propagate back to the request path.
type AccessRecorder interface {
	RecordAsync(logType, ip, method, path, userAgent string)
}

// Logger returns a middleware that logs requests and forwards them to the
// access recorder. The recorder call is fire-and-forget.
func Logger(log *zap.Logger, recorder AccessRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ip := ClientIP(c)

		if recorder != nil {
			recorder.RecordAsync("REQUEST", ip, c.Request.Method, c.Request.URL.Path, c.Request.UserAgent())
		}

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", ip),
			zap.Duration("duration", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if requestID := c.GetString(RequestIDKey); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			log.Error("Server error", fields...)
		case status >= 400:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request", fields...)
		}
	}
}
