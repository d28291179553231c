package utils

import (
	"net/http"
	"time"

	"lifeline/models"

	"github.com/gin-gonic/gin"
)

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// fail writes the error envelope; message doubles as the top-level message
func fail(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, models.APIResponse{
		Success: false,
		Message: message,
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	})
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, message, data)
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusCreated, message, data)
}

// AcceptedResponse is used when the request was taken but needs a follow-up
// (a pending cancel) or finishes in the background (a countdown)
func AcceptedResponse(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusAccepted, message, data)
}

// ErrorResponse picks the error code from the status
func ErrorResponse(c *gin.Context, statusCode int, message string, details interface{}) {
	fail(c, statusCode, errorCodeFor(statusCode), message, details)
}

func ValidationErrorResponse(c *gin.Context, validationErrors []ValidationError) {
	fail(c, http.StatusBadRequest, models.ErrCodeValidation, "Validation failed", validationErrors)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized access"
	}
	fail(c, http.StatusUnauthorized, models.ErrCodeAuthentication, message, nil)
}

func NotFoundResponse(c *gin.Context, resource string) {
	fail(c, http.StatusNotFound, models.ErrCodeNotFound, resource+" not found", nil)
}

func RateLimitResponse(c *gin.Context) {
	fail(c, http.StatusTooManyRequests, models.ErrCodeRateLimit, "Rate limit exceeded", nil)
}

func InternalServerErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	fail(c, http.StatusInternalServerError, models.ErrCodeInternal, message, nil)
}

func BadRequestResponse(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, models.ErrCodeBadRequest, message, nil)
}

// ServiceErrorResponse writes a ServiceError with its own code and status.
// Anything else becomes a 500.
func ServiceErrorResponse(c *gin.Context, err error) {
	serviceErr, ok := GetServiceError(err)
	if !ok {
		InternalServerErrorResponse(c, "")
		return
	}

	status := serviceErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	var details interface{}
	if serviceErr.Details != "" {
		details = serviceErr.Details
	}
	fail(c, status, serviceErr.Code, serviceErr.Message, details)
}

func errorCodeFor(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return models.ErrCodeBadRequest
	case http.StatusUnauthorized:
		return models.ErrCodeAuthentication
	case http.StatusForbidden:
		return models.ErrCodeAuthorization
	case http.StatusNotFound:
		return models.ErrCodeNotFound
	case http.StatusConflict:
		return models.ErrCodeConflict
	case http.StatusTooManyRequests:
		return models.ErrCodeRateLimit
	case http.StatusServiceUnavailable:
		return models.ErrCodeUnavailable
	default:
		return models.ErrCodeInternal
	}
}

// HealthCheckResponse is "degraded" when any dependency is neither healthy nor disabled
func HealthCheckResponse(services map[string]string, version, uptime string) models.HealthResponse {
	status := "healthy"
	for _, s := range services {
		if s != "healthy" && s != "disabled" {
			status = "degraded"
			break
		}
	}

	return models.HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
		Version:   version,
		Uptime:    uptime,
	}
}
