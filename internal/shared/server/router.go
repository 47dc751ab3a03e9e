package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fumble-backend/internal/analyses"
	"fumble-backend/internal/services/health"
	"fumble-backend/internal/shared/config"
	"fumble-backend/internal/shared/metrics"
	"fumble-backend/internal/shared/ratelimit"
	"fumble-backend/internal/shared/server/middleware"
	"fumble-backend/internal/shared/server/respond"
	"fumble-backend/internal/shared/telemetry"
	"fumble-backend/internal/usage"
)

// Banner is served at GET /.
const Banner = "Did I Fumble backend is live 🔥"

const analyzeGroup = "ANALYZE"

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config          config.Config
	AnalysisHandler *analyses.Handler
	UsageHandler    *usage.Handler
	Health          *health.Service
	Limiter         *ratelimit.Limiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	// Without trusted proxies ClientIP is the socket peer, so clients cannot
	// pick their own rate limit and quota keys via X-Forwarded-For.
	if err := r.SetTrustedProxies(deps.Config.TrustedProxies); err != nil {
		telemetry.Warn("server.trusted_proxies_invalid", map[string]any{
			"proxies": deps.Config.TrustedProxies,
			"error":   err,
		})
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:   deps.Limiter,
			GroupFor:  groupFor,
			OnLimited: func(*gin.Context) { metrics.IncRequestLimited() },
			Rules: map[string]ratelimit.Rule{
				analyzeGroup: ratelimit.PerMinute(deps.Config.RateLimitPerMinute),
			},
		}),
	)

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, Banner)
	})
	r.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		st := deps.Health.Status(c.Request.Context())
		if !st.OK {
			respond.JSON(c, http.StatusServiceUnavailable, st)
			return
		}
		respond.OK(c, st)
	})
	r.GET("/metrics", metrics.Handler())

	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(r)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(r)
		if config.IsDevLike(deps.Config.Env) {
			deps.UsageHandler.RegisterDevRoutes(r.Group("/dev"))
		}
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	return r
}

func groupFor(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && c.FullPath() == "/analyze" {
		return analyzeGroup
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
