package controllers

import (
	"lifeline/middleware"
	"lifeline/services"
	"lifeline/utils"
	"lifeline/websocket"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type WebSocketController struct {
	hub      *websocket.Hub
	auth     *middleware.AuthMiddleware
	sessions *services.SessionService
}

func NewWebSocketController(hub *websocket.Hub, auth *middleware.AuthMiddleware, sessions *services.SessionService) *WebSocketController {
	return &WebSocketController{
		hub:      hub,
		auth:     auth,
		sessions: sessions,
	}
}

// HandleWebSocket attaches a device to an emergency session
// @Summary Session WebSocket
// @Description Pushes wizard_state, notification_progress and speech_request; accepts location_update, permission and ping
// @Tags WebSocket
// @Param sessionId path string true "Session ID"
// @Param token query string true "Authentication token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /ws/{sessionId} [get]
func (wsc *WebSocketController) HandleWebSocket(c *gin.Context) {
	claims, err := wsc.auth.Authenticate(middleware.ExtractToken(c))
	if err != nil {
		logrus.Warnf("WebSocket authentication failed: %v", err)
		utils.UnauthorizedResponse(c, "Invalid authentication token")
		return
	}

	sessionID := c.Param("sessionId")
	session, err := wsc.sessions.Get(sessionID, claims.UserID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	conn, err := websocket.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written an HTTP error
		logrus.Errorf("Failed to upgrade WebSocket connection: %v", err)
		return
	}

	client := websocket.NewClient(wsc.hub, conn, deviceInput{sessions: wsc.sessions}, claims.UserID, session.ID)
	wsc.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	// The device may have connected after the last state change
	client.SendMessage(websocket.SnapshotMessage(session.Wizard.Snapshot()))

	logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"user_id":    claims.UserID,
	}).Info("WebSocket connection established")
}
