package models

import (
	"time"
)

// NotifyOutcome records what happened to one target class of the fan-out.
// It separates "nothing to notify" from "every target failed".
type NotifyOutcome string

const (
	OutcomePending      NotifyOutcome = "pending"
	OutcomeNotAttempted NotifyOutcome = "not_attempted"
	OutcomeFailed       NotifyOutcome = "failed"
	OutcomeSucceeded    NotifyOutcome = "succeeded"
)

// TargetClass is one of the three independent recipient classes
type TargetClass string

const (
	TargetEmergencyServices TargetClass = "emergency_services"
	TargetFacilities        TargetClass = "facilities"
	TargetFamily            TargetClass = "family"
)

// NotificationPayload is what every channel receives
type NotificationPayload struct {
	IncidentID    string             `json:"incidentId,omitempty"`
	Target        TargetClass        `json:"target"`
	RecipientID   string             `json:"recipientId,omitempty"`
	RecipientName string             `json:"recipientName,omitempty"`
	Title         string             `json:"title"`
	Body          string             `json:"body"`
	CategoryID    CategoryID         `json:"categoryId,omitempty"`
	Urgency       Urgency            `json:"urgency,omitempty"`
	Location      *EmergencyLocation `json:"location,omitempty"`
	Metadata      map[string]string  `json:"metadata,omitempty"`
	SentAt        time.Time          `json:"sentAt"`

	// Delivery addresses for contact sends
	Phone       string `json:"-"`
	Email       string `json:"-"`
	DeviceToken string `json:"-"`
}

// NotificationTally is the running total of fan-out results, shared with the UI
type NotificationTally struct {
	ServicesOutcome   NotifyOutcome `json:"servicesOutcome"`
	FacilitiesOutcome NotifyOutcome `json:"facilitiesOutcome"`
	FamilyOutcome     NotifyOutcome `json:"familyOutcome"`
	FacilityNames     []string      `json:"facilityNames"`
	ContactIDs        []string      `json:"contactIds"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// NewNotificationTally returns a tally with every class still pending
func NewNotificationTally() NotificationTally {
	return NotificationTally{
		ServicesOutcome:   OutcomePending,
		FacilitiesOutcome: OutcomePending,
		FamilyOutcome:     OutcomePending,
		FacilityNames:     []string{},
		ContactIDs:        []string{},
	}
}

func (t NotificationTally) Clone() NotificationTally {
	c := t
	c.FacilityNames = append([]string{}, t.FacilityNames...)
	c.ContactIDs = append([]string{}, t.ContactIDs...)
	return c
}

// DispatchRequest selects which target classes to notify and carries their inputs
type DispatchRequest struct {
	IncidentID      string
	Category        EmergencyCategory
	Urgency         Urgency
	Location        *EmergencyLocation
	Services        bool
	Facilities      bool
	Family          bool
	CustomMessage   string
	ServiceMetadata map[string]string
}

// DispatchResult aggregates one Dispatch call
type DispatchResult struct {
	ServicesOutcome   NotifyOutcome `json:"servicesOutcome"`
	FacilitiesOutcome NotifyOutcome `json:"facilitiesOutcome"`
	FamilyOutcome     NotifyOutcome `json:"familyOutcome"`
	FacilityNames     []string      `json:"facilityNames"`
	ContactIDs        []string      `json:"contactIds"`
	Duration          time.Duration `json:"duration"`
}

// OutcomeFromCount maps a fan-out's attempted/succeeded counts onto an outcome
func OutcomeFromCount(attempted, succeeded int) NotifyOutcome {
	switch {
	case attempted == 0:
		return OutcomeNotAttempted
	case succeeded == 0:
		return OutcomeFailed
	default:
		return OutcomeSucceeded
	}
}
