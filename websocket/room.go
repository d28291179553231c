package websocket

import (
	"sync"
	"time"

	"lifeline/models"

	"github.com/sirupsen/logrus"
)

// Room groups the devices attached to one emergency session
type Room struct {
	ID string

	clients map[*Client]bool
	mutex   sync.RWMutex

	createdAt    time.Time
	lastActivity time.Time
}

// NewRoom creates a new room for a session
func NewRoom(sessionID string) *Room {
	now := time.Now()
	logrus.Debugf("Created new room: %s", sessionID)

	return &Room{
		ID:           sessionID,
		clients:      make(map[*Client]bool),
		createdAt:    now,
		lastActivity: now,
	}
}

// AddClient adds a client to the room
func (r *Room) AddClient(client *Client) {
	if client == nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.clients[client] {
		return
	}
	r.clients[client] = true
	r.lastActivity = time.Now()
}

// RemoveClient removes a client from the room
func (r *Room) RemoveClient(client *Client) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.clients, client)
	r.lastActivity = time.Now()
}

func (r *Room) IsEmpty() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.clients) == 0
}

func (r *Room) GetClientCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.clients)
}

func (r *Room) LastActivity() time.Time {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.lastActivity
}

// Broadcast hands the message to every client in the room. A slow client
// never holds up the others; its copy is dropped instead.
func (r *Room) Broadcast(message models.WSMessage) (delivered, dropped int) {
	r.mutex.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	r.mutex.RUnlock()

	for _, client := range clients {
		if client.SendMessage(message) {
			delivered++
		} else {
			dropped++
		}
	}

	r.mutex.Lock()
	r.lastActivity = time.Now()
	r.mutex.Unlock()

	if dropped > 0 {
		logrus.WithFields(logrus.Fields{
			"session_id": r.ID,
			"type":       message.Type,
			"dropped":    dropped,
		}).Warn("Message dropped for some clients")
	}
	return delivered, dropped
}
