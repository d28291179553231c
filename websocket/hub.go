package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"lifeline/models"
	"lifeline/services"

	"github.com/sirupsen/logrus"
)

// ErrNoListeners is returned by speech sinks when no device is connected to the session
var ErrNoListeners = errors.New("no device connected to session")

type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Session rooms
	rooms map[string]*Room

	register   chan *Client
	unregister chan *Client
	broadcast  chan BroadcastMessage

	stats HubStats
	mutex sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	cleanupTicker *time.Ticker
}

type BroadcastMessage struct {
	SessionID string
	Message   models.WSMessage
}

type HubStats struct {
	TotalConnections  int64
	ActiveConnections int
	MessagesSent      int64
	MessagesDropped   int64
	StartTime         time.Time

	mutex sync.RWMutex
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan BroadcastMessage, 256),
		stats: HubStats{
			StartTime: time.Now(),
		},
		ctx:           ctx,
		cancel:        cancel,
		cleanupTicker: time.NewTicker(5 * time.Minute),
	}
}

func (h *Hub) Run() {
	logrus.Info("WebSocket Hub starting...")

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToSession(message)

		case <-h.cleanupTicker.C:
			h.performCleanup()

		case <-h.ctx.Done():
			logrus.Info("WebSocket Hub shutting down...")
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	h.getOrCreateRoom(client.sessionID).AddClient(client)

	h.stats.mutex.Lock()
	h.stats.ActiveConnections++
	h.stats.TotalConnections++
	active := h.stats.ActiveConnections
	h.stats.mutex.Unlock()

	logrus.WithFields(logrus.Fields{
		"session_id":    client.sessionID,
		"connection_id": client.connectionID,
	}).Infof("Client registered (Total: %d)", active)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	client.closeSend()
	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	if room, exists := h.rooms[client.sessionID]; exists {
		room.RemoveClient(client)
		if room.IsEmpty() {
			delete(h.rooms, client.sessionID)
		}
	}

	h.stats.mutex.Lock()
	h.stats.ActiveConnections--
	active := h.stats.ActiveConnections
	h.stats.mutex.Unlock()

	logrus.WithField("session_id", client.sessionID).Infof("Client unregistered (Total: %d)", active)
}

func (h *Hub) broadcastToSession(msg BroadcastMessage) {
	h.mutex.RLock()
	room := h.rooms[msg.SessionID]
	h.mutex.RUnlock()

	if room == nil {
		return
	}

	delivered, dropped := room.Broadcast(msg.Message)

	h.stats.mutex.Lock()
	h.stats.MessagesSent += int64(delivered)
	h.stats.MessagesDropped += int64(dropped)
	h.stats.mutex.Unlock()
}

func (h *Hub) getOrCreateRoom(sessionID string) *Room {
	if room, exists := h.rooms[sessionID]; exists {
		return room
	}

	room := NewRoom(sessionID)
	h.rooms[sessionID] = room
	return room
}

// HasListeners reports whether any device is connected to a session
func (h *Hub) HasListeners(sessionID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	room, ok := h.rooms[sessionID]
	return ok && !room.IsEmpty()
}

// BroadcastToSession queues a message for every device of a session. It never blocks.
func (h *Hub) BroadcastToSession(sessionID, msgType string, data interface{}) {
	message := models.WSMessage{
		Type:      msgType,
		Data:      data,
		SessionID: sessionID,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- BroadcastMessage{SessionID: sessionID, Message: message}:
	default:
		h.stats.mutex.Lock()
		h.stats.MessagesDropped++
		h.stats.mutex.Unlock()
		logrus.WithField("session_id", sessionID).Warnf("Broadcast channel full, dropping %s", msgType)
	}
}

// PublishSnapshot pushes the wizard state to the session's devices
func (h *Hub) PublishSnapshot(snapshot models.WizardSnapshot) {
	h.BroadcastToSession(snapshot.SessionID, models.WSTypeWizardState, snapshot)
}

// SnapshotMessage wraps a wizard snapshot for a single client
func SnapshotMessage(snapshot models.WizardSnapshot) models.WSMessage {
	return models.WSMessage{
		Type:      models.WSTypeWizardState,
		Data:      snapshot,
		SessionID: snapshot.SessionID,
		Timestamp: time.Now(),
	}
}

// PublishProgress pushes the running notification tally
func (h *Hub) PublishProgress(sessionID, incidentID string, tally models.NotificationTally) {
	h.BroadcastToSession(sessionID, models.WSTypeNotificationProgress, models.WSNotificationProgress{
		IncidentID: incidentID,
		Tally:      tally,
	})
}

// SpeechSink returns a sink that forwards speech requests to the session's devices
func (h *Hub) SpeechSink(sessionID string) services.SpeechSink {
	return &sessionSpeechSink{hub: h, sessionID: sessionID}
}

type sessionSpeechSink struct {
	hub       *Hub
	sessionID string
}

func (s *sessionSpeechSink) Speak(ctx context.Context, req services.SpeechRequest) error {
	if !s.hub.HasListeners(s.sessionID) {
		return ErrNoListeners
	}

	s.hub.BroadcastToSession(s.sessionID, models.WSTypeSpeechRequest, models.WSSpeechRequest{
		Text:      req.Text,
		Language:  req.LanguageTag,
		Rate:      req.Rate,
		Pitch:     req.Pitch,
		Kind:      req.Kind,
		Timestamp: time.Now(),
	})
	return nil
}

func (h *Hub) GetStats() models.WSHubStats {
	h.mutex.RLock()
	rooms := len(h.rooms)
	h.mutex.RUnlock()

	h.stats.mutex.RLock()
	defer h.stats.mutex.RUnlock()

	return models.WSHubStats{
		TotalConnections:  h.stats.TotalConnections,
		ActiveConnections: h.stats.ActiveConnections,
		ActiveRooms:       rooms,
		MessagesSent:      h.stats.MessagesSent,
		Uptime:            time.Since(h.stats.StartTime),
	}
}

func (h *Hub) performCleanup() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		if time.Since(client.LastActivity()) > pongWait*2 {
			logrus.WithField("session_id", client.sessionID).Warn("Removing inactive client")
			go client.cleanup()
		}
	}

	for sessionID, room := range h.rooms {
		if room.IsEmpty() {
			delete(h.rooms, sessionID)
		}
	}
}

func (h *Hub) Shutdown() {
	logrus.Info("Shutting down WebSocket Hub...")

	h.cleanupTicker.Stop()
	h.cancel()

	h.mutex.Lock()
	for client := range h.clients {
		client.closeSend()
		if client.conn != nil {
			client.conn.Close()
		}
	}
	h.mutex.Unlock()

	logrus.Info("WebSocket Hub shutdown complete")
}
