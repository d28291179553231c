package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmergencyContact is a registered family contact of a user
type EmergencyContact struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID       string             `json:"userId" bson:"userId"`
	Name         string             `json:"name" bson:"name"`
	Relationship string             `json:"relationship,omitempty" bson:"relationship,omitempty"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Email        string             `json:"email,omitempty" bson:"email,omitempty"`
	DeviceToken  string             `json:"-" bson:"deviceToken,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

// ContactID returns the stable identifier reported back in notified-contact lists
func (c EmergencyContact) ContactID() string {
	return c.ID.Hex()
}

type AddEmergencyContactRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=100"`
	Relationship string `json:"relationship" validate:"max=50"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
	Email        string `json:"email" validate:"omitempty,email"`
	DeviceToken  string `json:"deviceToken"`
}
