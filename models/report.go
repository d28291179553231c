package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IncidentReportRecord is an archived post-emergency report
type IncidentReportRecord struct {
	ID         primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	UserID     string               `json:"userId" bson:"userId"`
	SessionID  string               `json:"sessionId" bson:"sessionId"`
	IncidentID string               `json:"incidentId" bson:"incidentId"`
	CategoryID CategoryID           `json:"categoryId" bson:"categoryId"`
	Report     PostEmergencySupport `json:"report" bson:"report"`
	CreatedAt  time.Time            `json:"createdAt" bson:"createdAt"`
}
