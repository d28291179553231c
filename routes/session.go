// routes/session.go
package routes

import (
	"lifeline/controllers"
	"lifeline/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// SetupSessionRoutes configures the emergency wizard endpoints
func SetupSessionRoutes(router *gin.RouterGroup, wizardController *controllers.WizardController, redisClient *redis.Client) {
	sessions := router.Group("/sessions")
	sessions.Use(middleware.SessionRateLimit(redisClient))
	{
		sessions.POST("", wizardController.CreateSession)
		sessions.GET("/:sessionId", wizardController.GetSession)
		sessions.POST("/:sessionId/category", wizardController.SelectCategory)
		sessions.POST("/:sessionId/advance", wizardController.Advance)
		sessions.POST("/:sessionId/back", wizardController.Back)
		sessions.PUT("/:sessionId/preferences", wizardController.UpdatePreferences)
		sessions.POST("/:sessionId/location", wizardController.ReportLocation)
		sessions.POST("/:sessionId/countdown", wizardController.StartCountdown)
		sessions.POST("/:sessionId/tracker/step", wizardController.StepTracker)
	}

	cancel := sessions.Group("/:sessionId/cancel")
	{
		cancel.POST("", wizardController.Cancel)
		cancel.POST("/confirm", wizardController.ConfirmCancel)
		cancel.POST("/dismiss", wizardController.DismissCancel)
	}
}

// SetupCategoryRoutes configures the public category catalog
func SetupCategoryRoutes(router *gin.RouterGroup, categoryController *controllers.CategoryController) {
	categories := router.Group("/categories")
	{
		categories.GET("", categoryController.GetCategories)
		categories.GET("/:categoryId", categoryController.GetCategory)
	}
}

// SetupContactRoutes configures family contact management
func SetupContactRoutes(router *gin.RouterGroup, contactController *controllers.ContactController) {
	contacts := router.Group("/contacts")
	{
		contacts.GET("", contactController.GetContacts)
		contacts.POST("", contactController.AddContact)
		contacts.DELETE("/:contactId", contactController.DeleteContact)
	}
}
