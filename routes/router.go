package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/creditbonus/bonus"
	"github.com/cppla/creditbonus/config"
	"github.com/cppla/creditbonus/controllers"
	"github.com/cppla/creditbonus/middleware"
	"github.com/cppla/creditbonus/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, engine *bonus.Engine, cache *utils.StatusCache) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		utils.Sugar.Warnf("gin access log disabled: %v", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	bonusController := controllers.NewBonusController(engine, cache)
	configController := controllers.NewConfigController(cfg)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	api := r.Group("/api/v1")
	api.GET("/config/notice", configController.GetNotice)

	protected := api.Group("")
	if cfg.JWTSecret != "" {
		protected.Use(middleware.AuthRequired(cfg.JWTSecret))
	} else {
		utils.Sugar.Warn("JWT_SECRET not set; daily-login endpoints trust the userId in the request")
	}
	protected.Use(limiter.Middleware())
	protected.POST("/daily-login/claim", bonusController.Claim)
	protected.GET("/daily-login/status", bonusController.Status)
	protected.GET("/daily-login/history", bonusController.History)
	protected.GET("/credits/balance", bonusController.Balance)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
