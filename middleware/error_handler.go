package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"lifeline/models"
	"lifeline/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrorHandler recovers panics and renders errors pushed with c.Error
// when the handler has not written a response itself.
type ErrorHandler struct {
	environment string
	logger      *logrus.Logger
}

func NewErrorHandler(environment string, logger *logrus.Logger) *ErrorHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ErrorHandler{
		environment: environment,
		logger:      logger,
	}
}

// Handle returns the error handling middleware
func (eh *ErrorHandler) Handle() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				eh.handlePanic(c, err)
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			eh.handleGinErrors(c)
		}
	})
}

func (eh *ErrorHandler) handlePanic(c *gin.Context, err interface{}) {
	eh.logger.WithFields(logrus.Fields{
		"panic":      err,
		"stack":      string(debug.Stack()),
		"request_id": c.GetString("request_id"),
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"user_id":    c.GetString("userID"),
	}).Error("Panic recovered")

	var details interface{}
	if eh.environment == "development" {
		details = map[string]interface{}{"panic": err}
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, models.APIResponse{
		Success: false,
		Message: "Internal server error",
		Error: &models.APIError{
			Code:    models.ErrCodeInternal,
			Message: "Internal server error",
			Details: details,
		},
		Timestamp: time.Now(),
	})
}

func (eh *ErrorHandler) handleGinErrors(c *gin.Context) {
	lastError := c.Errors.Last()
	if lastError == nil {
		return
	}

	for _, ginErr := range c.Errors {
		eh.logger.WithFields(logrus.Fields{
			"error":      ginErr.Err.Error(),
			"request_id": c.GetString("request_id"),
			"path":       c.Request.URL.Path,
			"user_id":    c.GetString("userID"),
		}).Warn("Request error")
	}

	eh.processError(c, lastError.Err)
}

func (eh *ErrorHandler) processError(c *gin.Context, err error) {
	if _, ok := utils.GetServiceError(err); ok {
		utils.ServiceErrorResponse(c, err)
		return
	}

	switch {
	case mongo.IsDuplicateKeyError(err):
		utils.ErrorResponse(c, http.StatusConflict, "Resource already exists", nil)
	case errors.Is(err, mongo.ErrNoDocuments):
		utils.NotFoundResponse(c, "Resource")
	case mongo.IsTimeout(err):
		utils.ErrorResponse(c, http.StatusGatewayTimeout, "Database operation timed out", nil)
	case mongo.IsNetworkError(err):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Database connection error", nil)
	default:
		var details interface{}
		if eh.environment == "development" {
			details = map[string]interface{}{"original_error": err.Error()}
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred", details)
	}
}
