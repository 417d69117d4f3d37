package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/blogd/config"
	"github.com/cppla/blogd/controllers"
	"github.com/cppla/blogd/middleware"
	"github.com/cppla/blogd/services"
	"github.com/cppla/blogd/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, cfg config.AppConfig) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	controllers.RegisterValidators()

	r := gin.New()
	r.Use(middleware.RequestID())
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
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
	// Count successful reads of a post
	r.Use(middleware.PageViewRecorder(db, "/api/posts/:slug"))

	r.GET("/health", func(ctx *gin.Context) {
		if err := config.Ping(ctx.Request.Context(), db); err != nil {
			utils.Error(ctx, http.StatusServiceUnavailable, 50300, "database unavailable")
			return
		}
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", middleware.MetricsHandler())

	tokens := utils.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)
	authSvc := services.NewAuthService(db, tokens, cfg.BcryptCost, cfg.IsAdminUsername)
	userSvc := services.NewUsersService(db, cfg.BcryptCost)
	postSvc := services.NewPostsService(db, cfg.MaxCommentDepth)
	commentSvc := services.NewCommentsService(db, cfg.MaxCommentDepth)
	categorySvc := services.NewCategoriesService(db)
	tagSvc := services.NewTagsService(db)

	authController := controllers.NewAuthController(authSvc, userSvc)
	userController := controllers.NewUserController(userSvc)
	postController := controllers.NewPostController(postSvc)
	commentController := controllers.NewCommentController(commentSvc)
	categoryController := controllers.NewCategoryController(categorySvc)
	tagController := controllers.NewTagController(tagSvc)
	statsController := controllers.NewStatsController(db, postSvc)

	requireAuth := middleware.AuthRequired(tokens)
	adminOnly := middleware.Authorize(db, middleware.AdminOnly())
	// tokens outlive their users; writes must come from an existing account
	member := middleware.Authorize(db, middleware.Member())
	limit := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(limit)
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/me", requireAuth, authController.Me)
	authGroup.POST("/logout", requireAuth, authController.Logout)

	posts := api.Group("/posts")
	posts.GET("", postController.ListPosts)
	posts.GET("/:slug", postController.GetPost)
	posts.GET("/:slug/stats", statsController.GetPostStats)
	posts.POST("", requireAuth, member, limit, postController.CreatePost)
	posts.PATCH("/:id", requireAuth, member, postController.UpdatePost)
	posts.DELETE("/:id", requireAuth, member, postController.DeletePost)

	categories := api.Group("/categories")
	categories.GET("", categoryController.ListCategories)
	categories.GET("/:id", categoryController.GetCategory)
	categories.POST("", requireAuth, adminOnly, categoryController.CreateCategory)
	categories.PATCH("/:id", requireAuth, adminOnly, categoryController.UpdateCategory)
	categories.DELETE("/:id", requireAuth, adminOnly, categoryController.DeleteCategory)

	tags := api.Group("/tags")
	tags.GET("", tagController.ListTags)
	tags.GET("/popular", tagController.PopularTags)
	tags.GET("/:id", tagController.GetTag)
	tags.POST("", requireAuth, member, tagController.CreateTag)
	tags.PATCH("/:id", requireAuth, adminOnly, tagController.UpdateTag)
	tags.DELETE("/:id", requireAuth, adminOnly, tagController.DeleteTag)

	comments := api.Group("/comments")
	comments.GET("", commentController.ListComments)
	comments.GET("/post/:postId", commentController.ListPostComments)
	comments.GET("/user/:userId", commentController.ListUserComments)
	comments.GET("/:id", commentController.GetComment)
	comments.GET("/:id/replies", commentController.ListReplies)
	comments.POST("", requireAuth, member, limit, commentController.CreateComment)
	comments.POST("/reply", requireAuth, member, limit, commentController.CreateReply)
	comments.PATCH("/:id", requireAuth, member, commentController.UpdateComment)
	comments.DELETE("/:id", requireAuth, member, commentController.DeleteComment)

	users := api.Group("/users")
	users.GET("", userController.ListUsers)
	users.GET("/username/:username", userController.GetUserByUsername)
	users.GET("/:id", userController.GetUser)
	users.PATCH("/:id", requireAuth, middleware.Authorize(db, middleware.SelfOrAdmin("id")), userController.UpdateUser)
	users.DELETE("/:id", requireAuth, middleware.Authorize(db, middleware.SelfOrAdmin("id")), userController.DeleteUser)
	users.POST("/:id/change-password", requireAuth, middleware.Authorize(db, middleware.Self("id")), userController.ChangePassword)

	api.GET("/stats", statsController.GetStats)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
