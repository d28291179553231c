// routes/routes.go
package routes

import (
	"time"

	"lifeline/controllers"
	"lifeline/metrics"
	"lifeline/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Controllers is everything the router mounts
type Controllers struct {
	Wizard    *controllers.WizardController
	Category  *controllers.CategoryController
	Contact   *controllers.ContactController
	Report    *controllers.ReportController
	WebSocket *controllers.WebSocketController
	Health    *controllers.HealthController
}

type RouterConfig struct {
	Environment      string
	CORSOrigins      []string
	RateLimitRequest int
	RateLimitWindow  time.Duration
}

// SetupRoutes initializes all application routes
func SetupRoutes(cfg RouterConfig, ctrl *Controllers, auth *middleware.AuthMiddleware, redisClient *redis.Client) *gin.Engine {
	router := gin.New()

	setupGlobalMiddleware(router, cfg, redisClient)
	setupPublicRoutes(router, ctrl)
	setupAuthenticatedRoutes(router, ctrl, auth, redisClient)
	SetupWebSocketRoutes(router, ctrl.WebSocket)

	return router
}

func setupGlobalMiddleware(router *gin.Engine, cfg RouterConfig, redisClient *redis.Client) {
	router.Use(middleware.NewErrorHandler(cfg.Environment, logrus.StandardLogger()).Handle())
	router.Use(middleware.DefaultLoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Environment, cfg.CORSOrigins))
	router.Use(metrics.GinMiddleware())
	router.Use(middleware.RateLimitMiddleware(redisClient, cfg.RateLimitRequest, cfg.RateLimitWindow))
}

// Public routes (no authentication required)
func setupPublicRoutes(router *gin.Engine, ctrl *Controllers) {
	router.GET("/health", ctrl.Health.HealthCheck)
	router.GET("/health/stats", ctrl.Health.Stats)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	public := router.Group("/api/v1")
	{
		SetupCategoryRoutes(public, ctrl.Category)
	}
}

// Authenticated routes (requires valid JWT token)
func setupAuthenticatedRoutes(router *gin.Engine, ctrl *Controllers, auth *middleware.AuthMiddleware, redisClient *redis.Client) {
	api := router.Group("/api/v1")
	api.Use(auth.RequireAuth())

	SetupSessionRoutes(api, ctrl.Wizard, redisClient)
	SetupContactRoutes(api, ctrl.Contact)
	api.GET("/reports", ctrl.Report.GetReports)
}
