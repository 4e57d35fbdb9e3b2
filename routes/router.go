package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/playpoints/ledger/config"
	"github.com/playpoints/ledger/controllers"
	"github.com/playpoints/ledger/middleware"
	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, svc *services.Services) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil && cfg.GinPath != "" {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.ServiceKeyHeader},
		ExposeHeaders:    []string{"Content-Length"},
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

	authController := controllers.NewAuthController(svc)
	checkInController := controllers.NewCheckInController(svc)
	ledgerController := controllers.NewLedgerController(svc)
	rewardController := controllers.NewRewardController(svc)
	boostController := controllers.NewBoostController(svc)
	questController := controllers.NewQuestController(svc)
	playtimeController := controllers.NewPlaytimeController(svc)
	serviceController := controllers.NewServiceController(svc)
	adminController := controllers.NewAdminController(svc)
	statsController := controllers.NewStatsController(db, svc)
	configController := controllers.NewConfigController(svc.Rules())

	authRequired := middleware.AuthRequired(svc.Accounts)
	optionalAuth := middleware.OptionalAuth(svc.Accounts)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", authRequired, authController.Logout)
	authGroup.GET("/me", authRequired, authController.Me)

	// Public, advisory reads
	api.GET("/rules", configController.GetRules)
	api.GET("/stats", statsController.GetStats)
	api.GET("/leaderboard", statsController.GetLeaderboard)
	api.GET("/rewards", rewardController.ListRewards)
	api.GET("/checkin/status", optionalAuth, checkInController.Status)
	api.GET("/quests", optionalAuth, questController.ListQuests)

	protected := api.Group("")
	protected.Use(authRequired, middleware.RateLimitMiddleware())
	protected.POST("/checkin", checkInController.CheckIn)
	protected.GET("/checkin/history", checkInController.History)
	protected.GET("/ledger", ledgerController.ListEntries)
	protected.POST("/rewards/:id/redeem", rewardController.Redeem)
	protected.GET("/redemptions", rewardController.ListRedemptions)
	protected.GET("/boosts", boostController.ListBoosts)
	protected.POST("/quests/:key/progress", questController.UpdateProgress)
	protected.POST("/quests/:key/claim", questController.Claim)
	protected.GET("/playtime/titles", playtimeController.ListTitles)
	protected.GET("/playtime/daily", playtimeController.ListDaily)

	service := api.Group("/service")
	service.Use(middleware.ServiceKeyRequired())
	service.POST("/playtime", serviceController.IngestPlaytime)
	service.POST("/boosts", serviceController.ActivateBoost)
	service.POST("/checkin/settlement", serviceController.ConfirmSettlement)

	admin := api.Group("/admin")
	admin.Use(authRequired, middleware.AdminRequired())
	admin.POST("/credit", adminController.Credit)
	admin.GET("/reconcile/:handle", adminController.Reconcile)
	admin.POST("/reconcile", adminController.ReconcileAll)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
