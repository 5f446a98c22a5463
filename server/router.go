package server

import (
	"time"

	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/realtime"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitiateRouter(
	healthHandler httpHandler.IHealthHandler,
	accountHandler httpHandler.ISocialAccountHandler,
	authHandler httpHandler.ISocialAuthHandler,
	postHandler httpHandler.ISocialPostHandler,
	postHub *realtime.Hub,
	userRepository repository.IUser,
	rateLimit *middleware.RateLimit,
	app configuration.App,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     app.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler.Healthz)

	social := router.Group("/social")
	social.GET("/platforms", accountHandler.Platforms)
	// OAuth providers redirect here without our bearer token.
	social.GET("/auth/:platform/callback", authHandler.Callback)

	api := social.Group("")
	api.Use(middleware.Auth(userRepository, app.SecretKey))
	if rateLimit != nil {
		api.Use(rateLimit.Middleware())
	}
	{
		api.POST("/accounts/add", accountHandler.AddAccount)
		api.GET("/accounts", accountHandler.ListAccounts)
		api.DELETE("/accounts/:id", accountHandler.DeleteAccount)

		api.GET("/auth/:platform", authHandler.GetAuthURL)

		api.POST("/post", postHandler.Publish)
		api.GET("/posts", postHandler.ListPosts)
		api.GET("/posts/stream", postHub.Serve)
		api.GET("/posts/:id", postHandler.GetPost)
		api.GET("/posts/:id/metrics", postHandler.GetMetrics)
	}

	return router
}
