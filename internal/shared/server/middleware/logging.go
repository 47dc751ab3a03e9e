package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fumble-backend/internal/shared/telemetry"
)

const (
	outcomeKey  = "verdictOutcome"
	fallbackKey = "verdictFallback"
)

// AnnotateVerdict records the verdict shape on the request so Logging can emit it.
func AnnotateVerdict(c *gin.Context, outcome string, fallback bool) {
	if c == nil {
		return
	}
	c.Set(outcomeKey, outcome)
	c.Set(fallbackKey, fallback)
}

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if outcome, ok := c.Get(outcomeKey); ok {
			fields["outcome"] = outcome
		}
		if fallback, ok := c.Get(fallbackKey); ok {
			fields["fallback"] = fallback
		}
		telemetry.Info("request.complete", fields)
	}
}
