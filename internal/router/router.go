package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/handler"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt *handler.AttemptWSHandler
	Monitor *handler.MonitorHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	wsLimiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())

	// /metrics negotiates its own encoding
	router.Use(middleware.Brotli(middleware.BrotliConfig{
		MinLength: middleware.DefaultBrotliConfig.MinLength,
		SkipPaths: []string{"/metrics"},
	}))

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ─── 1. WebSocket Group (anonymous test-takers, rate limited) ───────
	ws := router.Group("/ws/v1")
	ws.Use(wsLimiter.Middleware())
	{
		ws.GET("/attempts", handlers.Attempt.AttemptStream)
	}

	// ─── 2. Monitor Group (proctor JWT) ────────────────────────────────
	monitor := router.Group("/api/v1/monitor")
	monitor.Use(middleware.RequireMonitorJWT(authService))
	{
		monitor.GET("/system/queues", handlers.System.Queues)

		sessions := monitor.Group("/sessions/:session_id")
		sessions.Use(middleware.RequireSessionAccess())
		{
			sessions.GET("", handlers.Monitor.GetSession)
			sessions.GET("/stream", handlers.Monitor.StreamSession)
		}
	}

	return router
}
