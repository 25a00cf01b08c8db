package middleware

import (
	"log/slog"
	"time"

	"scribe/observability"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger logs one structured line per request and echoes a request ID.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("requestId", rid)
		c.Header(RequestIDHeader, rid)

		c.Next()

		status := c.Writer.Status()
		fields := []any{
			slog.String("request_id", rid),
			slog.Int("status", status),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", time.Since(start)),
		}
		if uid := c.GetString("userId"); uid != "" {
			fields = append(fields, slog.String("user_id", uid))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, slog.String("error", c.Errors.String()))
		}

		switch {
		case status >= 500:
			observability.Logger.ErrorContext(c.Request.Context(), "request failed", fields...)
		case status >= 400:
			observability.Logger.WarnContext(c.Request.Context(), "request rejected", fields...)
		default:
			observability.Logger.InfoContext(c.Request.Context(), "request processed", fields...)
		}
	}
}
