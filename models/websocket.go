// models/websocket.go
package models

import (
	"time"
)

// WebSocket Message Types
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	SessionID string      `json:"sessionId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"requestId,omitempty"`
}

// WSSpeechRequest asks the device's speech engine to say something
type WSSpeechRequest struct {
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	Rate      float64   `json:"rate"`
	Pitch     float64   `json:"pitch"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// WSNotificationProgress carries the running tally as fan-outs resolve
type WSNotificationProgress struct {
	IncidentID string            `json:"incidentId"`
	Tally      NotificationTally `json:"tally"`
}

// WSError is the payload of an error frame
type WSError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// WebSocket Request Types
type WSRequest struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	RequestID string                 `json:"requestId,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type WSLocationRequest struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Address   string   `json:"address,omitempty"`
}

type WSPermissionRequest struct {
	Granted bool `json:"granted"`
}

// WebSocket Event Types
const (
	WSTypeWizardState          = "wizard_state"
	WSTypeNotificationProgress = "notification_progress"
	WSTypeSpeechRequest        = "speech_request"
	WSTypeLocationUpdate       = "location_update"
	WSTypePermission           = "permission"
	WSTypePing                 = "ping"
	WSTypePong                 = "pong"
	WSTypeError                = "error"
	WSTypeSuccess              = "success"
)

// WebSocket Hub Stats
type WSHubStats struct {
	TotalConnections  int64         `json:"totalConnections"`
	ActiveConnections int           `json:"activeConnections"`
	ActiveRooms       int           `json:"activeRooms"`
	MessagesSent      int64         `json:"messagesSent"`
	Uptime            time.Duration `json:"uptime"`
}
