package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fumble-backend/internal/shared/ratelimit"
	"fumble-backend/internal/shared/server/respond"
)

const defaultRateLimitGroup = "DEFAULT"

type RateLimitConfig struct {
	Rules        map[string]ratelimit.Rule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *ratelimit.Limiter
	// OnLimited is called for every rejected request.
	OnLimited func(*gin.Context)
}

// RateLimit applies a token bucket per client IP and group. Groups without a
// rule pass through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		key := strings.TrimSpace(c.ClientIP()) + "|" + group
		allowed, retryAfter := cfg.Limiter.Allow(key, rule)
		if allowed {
			c.Next()
			return
		}
		retryAfterMs := int(retryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		retryAfterSeconds := int(math.Ceil(float64(retryAfterMs) / 1000.0))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		if cfg.OnLimited != nil {
			cfg.OnLimited(c)
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Try again in a minute.", gin.H{
			"retryAfterMs": retryAfterMs,
		})
	}
}
