package utils

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// GetUserID returns the caller set by the auth middleware, or ""
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("userID"); exists {
		if idStr, ok := userID.(string); ok {
			return idStr
		}
	}
	return ""
}

func Float64Ptr(f float64) *float64 {
	return &f
}

// MaskPhoneNumber keeps the last four digits for logs
func MaskPhoneNumber(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// MaskEmail keeps the first character of the local part for logs
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 1 {
		return "***" + email[max(at, 0):]
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}

// FormatDuration renders uptime for the health endpoint
func FormatDuration(duration time.Duration) string {
	return duration.Truncate(time.Second).String()
}
