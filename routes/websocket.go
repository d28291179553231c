// routes/websocket.go
package routes

import (
	"lifeline/controllers"

	"github.com/gin-gonic/gin"
)

// SetupWebSocketRoutes mounts the per-session WebSocket. The token travels in
// the query string, so authentication happens inside the handler.
func SetupWebSocketRoutes(router *gin.Engine, wsController *controllers.WebSocketController) {
	router.GET("/ws/:sessionId", wsController.HandleWebSocket)
}
