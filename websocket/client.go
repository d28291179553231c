package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"lifeline/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Buffer size for client send channel
	sendBufferSize = 64
)

// Upgrader is shared by the WebSocket endpoint
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one device connected to one emergency session
type Client struct {
	conn    *websocket.Conn
	hub     *Hub
	handler SessionHandler

	userID       string
	sessionID    string
	connectionID string
	connectedAt  time.Time

	send    chan models.WSMessage
	limiter *rate.Limiter

	mu           sync.Mutex
	closed       bool
	lastActivity time.Time

	cleanupOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, handler SessionHandler, userID, sessionID string) *Client {
	return &Client{
		conn:         conn,
		hub:          hub,
		handler:      handler,
		userID:       userID,
		sessionID:    sessionID,
		connectionID: uuid.New().String(),
		connectedAt:  time.Now(),
		send:         make(chan models.WSMessage, sendBufferSize),
		limiter:      rate.NewLimiter(rate.Every(time.Second/5), 20),
		lastActivity: time.Now(),
	}
}

// Register hands the client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (c *Client) ReadPump() {
	defer c.cleanup()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("session_id", c.sessionID).Errorf("WebSocket error: %v", err)
			}
			return
		}
		c.touch()

		if !c.limiter.Allow() {
			c.SendMessage(errorFrame(models.ErrCodeRateLimit, "Rate limit exceeded", ""))
			continue
		}

		var request models.WSRequest
		if err := json.Unmarshal(data, &request); err != nil {
			c.SendMessage(errorFrame(models.ErrCodeValidation, "Invalid message format", ""))
			continue
		}

		c.SendMessage(routeRequest(c, request))
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logrus.WithField("session_id", c.sessionID).Errorf("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage queues a message without blocking. Messages to a full or closed client are dropped.
func (c *Client) SendMessage(message models.WSMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		logrus.WithField("session_id", c.sessionID).Warn("Send channel full, dropping message")
		return false
	}
}

func (c *Client) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) cleanup() {
	c.cleanupOnce.Do(func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
			c.closeSend()
		}
		c.conn.Close()

		logrus.WithFields(logrus.Fields{
			"session_id":    c.sessionID,
			"connection_id": c.connectionID,
			"duration":      time.Since(c.connectedAt).Round(time.Second),
		}).Info("Client disconnected")
	})
}
