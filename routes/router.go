package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/spiritfit/config"
	"github.com/cppla/spiritfit/controllers"
	"github.com/cppla/spiritfit/feed"
	"github.com/cppla/spiritfit/middleware"
	"github.com/cppla/spiritfit/points"
	"github.com/cppla/spiritfit/progress"
	"github.com/cppla/spiritfit/realtime"
	"github.com/cppla/spiritfit/social"
	"github.com/cppla/spiritfit/storage"
	"github.com/cppla/spiritfit/utils"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	DB       *gorm.DB
	Ledger   *points.GormLedger
	Progress *progress.Service
	Graph    *social.Graph
	Feed     *feed.Service
	Uploader *storage.Uploader
	Hub      *realtime.Hub
}

// NewDeps builds every service over db. pub may be the hub itself when no Redis bus runs.
func NewDeps(db *gorm.DB, hub *realtime.Hub, pub realtime.Publisher, store storage.ObjectStore) Deps {
	cfg := config.Get()
	ledger := points.NewLedger(db)
	graph := social.NewGraph(db)
	return Deps{
		DB:       db,
		Ledger:   ledger,
		Progress: progress.NewService(db, ledger),
		Graph:    graph,
		Feed: feed.NewService(db, ledger, graph, feed.Options{
			PageSize:  cfg.FeedPageSize,
			CacheTTL:  cfg.FeedCacheTTL,
			Publisher: pub,
		}),
		Uploader: storage.NewUploader(db, store),
		Hub:      hub,
	}
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
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
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.TimezoneHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Timezone(cfg.Location()))

	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(d.DB)
	sessionController := controllers.NewSessionController(d.Progress)
	milestoneController := controllers.NewMilestoneController(d.Progress)
	prayerController := controllers.NewPrayerController(d.Progress)
	pointsController := controllers.NewPointsController(d.Ledger)
	feedController := controllers.NewFeedController(d.Feed, d.Hub)
	socialController := controllers.NewSocialController(d.Graph)
	notificationController := controllers.NewNotificationController(d.DB)
	uploadController := controllers.NewUploadController(d.Uploader)
	statsController := controllers.NewStatsController(d.DB)

	authRequired := middleware.AuthRequired(cfg.JWTSecret)
	optionalAuth := middleware.OptionalAuth(cfg.JWTSecret)
	rateLimit := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(rateLimit)
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authRequired, authController.Logout)
	authGroup.GET("/me", authRequired, authController.Me)
	authGroup.PATCH("/profile", authRequired, authController.UpdateProfile)

	// Public reads; a valid token personalizes them
	public := api.Group("")
	public.Use(optionalAuth)
	public.GET("/feed", feedController.List)
	public.GET("/feed/stream", feedController.Stream)
	public.GET("/posts/:id", feedController.Get)
	public.GET("/posts/:id/comments", feedController.ListComments)
	public.GET("/posts/:id/stats", statsController.GetPostStats)
	public.GET("/users/:id", authController.GetUserPublic)
	public.GET("/users/:id/following", socialController.Following)
	public.GET("/users/:id/followers", socialController.Followers)
	public.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(authRequired, rateLimit)

	protected.POST("/sessions/phase", sessionController.CompletePhase)
	protected.GET("/sessions/today", sessionController.Today)
	protected.GET("/sessions", sessionController.History)
	protected.POST("/progress/check", sessionController.Check)
	protected.GET("/progress/challenges", sessionController.Challenges)

	protected.GET("/milestones", milestoneController.List)
	protected.POST("/milestones/viewed", milestoneController.MarkViewed)

	protected.POST("/prayers", prayerController.Log)
	protected.GET("/prayers", prayerController.List)
	protected.PATCH("/prayers/:id/answered", prayerController.SetAnswered)
	protected.DELETE("/prayers/:id", prayerController.Delete)

	protected.GET("/points", pointsController.Summary)

	protected.POST("/posts", feedController.Create)
	protected.DELETE("/posts/:id", feedController.Delete)
	protected.POST("/posts/:id/reactions", feedController.React)
	protected.POST("/posts/:id/pray", feedController.Pray)
	protected.POST("/posts/:id/vote", feedController.Vote)
	protected.POST("/posts/:id/answered", feedController.MarkAnswered)
	protected.POST("/posts/:id/comments", feedController.CreateComment)
	protected.DELETE("/comments/:comment_id", feedController.DeleteComment)

	protected.POST("/users/:id/follow", socialController.Follow)
	protected.DELETE("/users/:id/follow", socialController.Unfollow)
	protected.GET("/friends", socialController.Friends)
	protected.POST("/squads", socialController.CreateSquad)
	protected.POST("/squads/join", socialController.JoinSquad)
	protected.GET("/squads", socialController.MySquads)
	protected.DELETE("/squads/:id/members/me", socialController.LeaveSquad)
	protected.GET("/squads/:id/members", socialController.Members)

	protected.GET("/notifications", notificationController.List)
	protected.POST("/notifications/read", notificationController.MarkRead)

	protected.POST("/uploads", uploadController.Upload)
	protected.GET("/uploads", uploadController.List)
	protected.DELETE("/uploads/:id", uploadController.Delete)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/static/") {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "static asset not found"})
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
