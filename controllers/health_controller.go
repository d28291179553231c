package controllers

import (
	"context"
	"net/http"
	"time"

	"lifeline/database"
	"lifeline/utils"
	"lifeline/websocket"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// SessionCounter reports how many emergency sessions are open
type SessionCounter interface {
	Count() int
}

type HealthController struct {
	version   string
	startTime time.Time
	useDB     bool
	redis     *redis.Client
	hub       *websocket.Hub
	sessions  SessionCounter
}

func NewHealthController(version string, useDB bool, redisClient *redis.Client, hub *websocket.Hub, sessions SessionCounter) *HealthController {
	return &HealthController{
		version:   version,
		startTime: time.Now(),
		useDB:     useDB,
		redis:     redisClient,
		hub:       hub,
		sessions:  sessions,
	}
}

// HealthCheck reports dependency status. Missing optional backends are "disabled", not failures.
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Failure 503 {object} models.HealthResponse
// @Router /health [get]
func (hc *HealthController) HealthCheck(c *gin.Context) {
	services := map[string]string{
		"database":  "disabled",
		"redis":     "disabled",
		"websocket": "healthy",
	}

	if hc.useDB {
		services["database"] = database.HealthCheck(c.Request.Context()).Status
	}

	if hc.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := hc.redis.Ping(ctx).Err(); err != nil {
			services["redis"] = "unhealthy"
		} else {
			services["redis"] = "healthy"
		}
	}

	uptime := utils.FormatDuration(time.Since(hc.startTime))
	response := utils.HealthCheckResponse(services, hc.version, uptime)

	status := http.StatusOK
	if services["database"] == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}

// Stats reports live session and WebSocket counters
// @Summary Runtime statistics
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /health/stats [get]
func (hc *HealthController) Stats(c *gin.Context) {
	utils.SuccessResponse(c, "Runtime statistics", gin.H{
		"activeSessions": hc.sessions.Count(),
		"websocket":      hc.hub.GetStats(),
		"uptime":         utils.FormatDuration(time.Since(hc.startTime)),
	})
}
