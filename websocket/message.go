package websocket

import (
	"encoding/json"
	"time"

	"lifeline/models"
	"lifeline/utils"

	"github.com/sirupsen/logrus"
)

// SessionHandler applies device input to the session a client is attached to
type SessionHandler interface {
	ReportLocation(userID, sessionID string, req models.ReportLocationRequest) error
	ReportPermission(userID, sessionID string, granted bool) error
}

type requestHandler func(c *Client, req models.WSRequest) models.WSMessage

var requestHandlers = map[string]requestHandler{
	models.WSTypeLocationUpdate: handleLocationUpdate,
	models.WSTypePermission:     handlePermission,
	models.WSTypePing:           handlePing,
}

// routeRequest dispatches a device frame and returns the reply to send back
func routeRequest(c *Client, req models.WSRequest) models.WSMessage {
	if req.Type == "" {
		return errorFrame(models.ErrCodeValidation, "Message type is required", req.RequestID)
	}

	handler, ok := requestHandlers[req.Type]
	if !ok {
		return errorFrame(models.ErrCodeValidation, "Unknown message type: "+req.Type, req.RequestID)
	}
	return handler(c, req)
}

func handleLocationUpdate(c *Client, req models.WSRequest) models.WSMessage {
	if req.Data == nil {
		return errorFrame(models.ErrCodeValidation, "Location data is required", req.RequestID)
	}

	var location models.WSLocationRequest
	if err := decodeData(req.Data, &location); err != nil {
		return errorFrame(models.ErrCodeValidation, "Invalid location data", req.RequestID)
	}
	if !utils.IsValidCoordinate(location.Latitude, location.Longitude) {
		return errorFrame(models.ErrCodeValidation, "Invalid coordinates", req.RequestID)
	}

	err := c.handler.ReportLocation(c.userID, c.sessionID, models.ReportLocationRequest{
		PermissionGranted: true,
		Latitude:          location.Latitude,
		Longitude:         location.Longitude,
		Accuracy:          location.Accuracy,
		Address:           location.Address,
	})
	if err != nil {
		return serviceErrorMessage(c, err, req.RequestID)
	}

	return successFrame("Location updated", nil, req.RequestID)
}

func handlePermission(c *Client, req models.WSRequest) models.WSMessage {
	var permission models.WSPermissionRequest
	if err := decodeData(req.Data, &permission); err != nil {
		return errorFrame(models.ErrCodeValidation, "Invalid permission data", req.RequestID)
	}

	if err := c.handler.ReportPermission(c.userID, c.sessionID, permission.Granted); err != nil {
		return serviceErrorMessage(c, err, req.RequestID)
	}

	return successFrame("Permission recorded", permission, req.RequestID)
}

func handlePing(c *Client, req models.WSRequest) models.WSMessage {
	return models.WSMessage{
		Type:      models.WSTypePong,
		Data:      map[string]interface{}{"timestamp": time.Now().Unix()},
		SessionID: c.sessionID,
		RequestID: req.RequestID,
		Timestamp: time.Now(),
	}
}

func serviceErrorMessage(c *Client, err error, requestID string) models.WSMessage {
	if serviceErr, ok := utils.GetServiceError(err); ok {
		return errorFrame(serviceErr.Code, serviceErr.Message, requestID)
	}

	logrus.WithFields(logrus.Fields{
		"session_id": c.sessionID,
		"user_id":    c.userID,
	}).Errorf("Session handler failed: %v", err)
	return errorFrame(models.ErrCodeInternal, "Internal server error", requestID)
}

func successFrame(message string, data interface{}, requestID string) models.WSMessage {
	payload := map[string]interface{}{
		"success": true,
		"message": message,
	}
	if data != nil {
		payload["data"] = data
	}
	return models.WSMessage{
		Type:      models.WSTypeSuccess,
		Data:      payload,
		RequestID: requestID,
		Timestamp: time.Now(),
	}
}

// errorFrame carries a code the device can branch on
func errorFrame(code, message, requestID string) models.WSMessage {
	now := time.Now()
	return models.WSMessage{
		Type: models.WSTypeError,
		Data: map[string]interface{}{
			"success": false,
			"error":   models.WSError{Code: code, Message: message, Timestamp: now},
		},
		RequestID: requestID,
		Timestamp: now,
	}
}

// decodeData maps a frame's loose data object onto a typed request
func decodeData(data map[string]interface{}, target interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
