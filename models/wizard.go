package models

import (
	"time"
)

// WizardStage is a screen of the emergency wizard. Order matters.
type WizardStage string

const (
	StageTypeSelection    WizardStage = "type_selection"
	StageFirstAid         WizardStage = "first_aid"
	StageEmergencyActions WizardStage = "emergency_actions"
	StageTracking         WizardStage = "tracking"
	StagePostEmergency    WizardStage = "post_emergency"
)

// Next returns the following stage and false at the end
func (s WizardStage) Next() (WizardStage, bool) {
	switch s {
	case StageTypeSelection:
		return StageFirstAid, true
	case StageFirstAid:
		return StageEmergencyActions, true
	case StageEmergencyActions:
		return StageTracking, true
	case StageTracking:
		return StagePostEmergency, true
	case StagePostEmergency:
		return s, false
	default:
		return s, false
	}
}

// Previous returns the preceding stage and false at the start
func (s WizardStage) Previous() (WizardStage, bool) {
	switch s {
	case StageFirstAid:
		return StageTypeSelection, true
	case StageEmergencyActions:
		return StageFirstAid, true
	case StageTracking:
		return StageEmergencyActions, true
	case StagePostEmergency:
		return StageTracking, true
	case StageTypeSelection:
		return s, false
	default:
		return s, false
	}
}

// Language is the closed set of guidance languages
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
	LanguageTamil   Language = "ta"

	DefaultLanguage = LanguageEnglish
)

// Normalize fails closed: anything outside the supported set becomes the default
func (l Language) Normalize() Language {
	switch l {
	case LanguageEnglish, LanguageHindi, LanguageTamil:
		return l
	default:
		return DefaultLanguage
	}
}

// Tag returns the BCP-47 tag handed to the speech engine
func (l Language) Tag() string {
	switch l.Normalize() {
	case LanguageHindi:
		return "hi-IN"
	case LanguageTamil:
		return "ta-IN"
	default:
		return "en-IN"
	}
}

type WizardState struct {
	Stage         WizardStage        `json:"stage"`
	Category      *EmergencyCategory `json:"category,omitempty"`
	AudioEnabled  bool               `json:"audioEnabled"`
	Language      Language           `json:"language"`
	CancelPending bool               `json:"cancelPending"`
}

// WizardSnapshot is the read-only view handed to the presentation layer after every transition
type WizardSnapshot struct {
	SessionID     string                `json:"sessionId,omitempty"`
	State         WizardState           `json:"state"`
	Incident      *EmergencyIncident    `json:"incident,omitempty"`
	Tracker       *EmergencyTracker     `json:"tracker,omitempty"`
	Report        *PostEmergencySupport `json:"report,omitempty"`
	Notifications NotificationTally     `json:"notifications"`
	TakenAt       time.Time             `json:"takenAt"`
}

// Request DTOs for the wizard API

type SelectCategoryRequest struct {
	CategoryID string `json:"categoryId" validate:"required,category_id"`
}

type WizardPreferencesRequest struct {
	AudioEnabled *bool   `json:"audioEnabled"`
	Language     *string `json:"language" validate:"omitempty,language"`
}

type ReportLocationRequest struct {
	PermissionGranted bool     `json:"permissionGranted"`
	Latitude          float64  `json:"latitude" validate:"coordinate"`
	Longitude         float64  `json:"longitude" validate:"coordinate"`
	Accuracy          *float64 `json:"accuracy" validate:"omitempty,gte=0"`
	Address           string   `json:"address" validate:"max=300"`
}

type CountdownRequest struct {
	Count int `json:"count" validate:"required,min=1,max=10"`
}
