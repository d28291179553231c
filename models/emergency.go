package models

import (
	"time"
)

// CategoryID identifies an emergency category in the static catalog
type CategoryID string

const (
	CategoryChestPain           CategoryID = "chest_pain"
	CategoryHeartAttack         CategoryID = "heart_attack"
	CategoryStroke              CategoryID = "stroke"
	CategoryBreathingDifficulty CategoryID = "breathing_difficulty"
	CategoryRoadAccident        CategoryID = "road_accident"
	CategorySevereInjury        CategoryID = "severe_injury"
	CategorySevereTrauma        CategoryID = "severe_trauma"
	CategoryBurns               CategoryID = "burns"
	CategorySnakeBite           CategoryID = "snake_bite"
	CategoryPoisoning           CategoryID = "poisoning"
	CategoryPregnancyDelivery   CategoryID = "pregnancy_delivery"
	CategoryChildEmergency      CategoryID = "child_emergency"
)

// Valid reports whether the id names a category of the catalog
func (c CategoryID) Valid() bool {
	switch c {
	case CategoryChestPain, CategoryHeartAttack, CategoryStroke, CategoryBreathingDifficulty,
		CategoryRoadAccident, CategorySevereInjury, CategorySevereTrauma, CategoryBurns,
		CategorySnakeBite, CategoryPoisoning, CategoryPregnancyDelivery, CategoryChildEmergency:
		return true
	default:
		return false
	}
}

// IncidentStatus is the lifecycle of an EmergencyIncident. Order matters.
type IncidentStatus string

const (
	IncidentStatusInitiated       IncidentStatus = "initiated"
	IncidentStatusFirstAidShown   IncidentStatus = "first_aid_shown"
	IncidentStatusAmbulanceCalled IncidentStatus = "ambulance_called"
	IncidentStatusInTransit       IncidentStatus = "in_transit"
	IncidentStatusAtHospital      IncidentStatus = "at_hospital"
	IncidentStatusResolved        IncidentStatus = "resolved"
)

// IncidentLifecycle lists every status in forward order
var IncidentLifecycle = []IncidentStatus{
	IncidentStatusInitiated,
	IncidentStatusFirstAidShown,
	IncidentStatusAmbulanceCalled,
	IncidentStatusInTransit,
	IncidentStatusAtHospital,
	IncidentStatusResolved,
}

// Ordinal returns the position of the status in the lifecycle, or -1
func (s IncidentStatus) Ordinal() int {
	for i, status := range IncidentLifecycle {
		if status == s {
			return i
		}
	}
	return -1
}

func (s IncidentStatus) Valid() bool {
	return s.Ordinal() >= 0
}

// AmbulanceStatus is the tracker's finer-grained sub-status
type AmbulanceStatus string

const (
	AmbulanceDispatched   AmbulanceStatus = "dispatched"
	AmbulanceEnRoute      AmbulanceStatus = "en_route"
	AmbulanceArrived      AmbulanceStatus = "arrived"
	AmbulanceTransporting AmbulanceStatus = "transporting"
)

// Next returns the following sub-status and false when s is terminal or unknown
func (s AmbulanceStatus) Next() (AmbulanceStatus, bool) {
	switch s {
	case AmbulanceDispatched:
		return AmbulanceEnRoute, true
	case AmbulanceEnRoute:
		return AmbulanceArrived, true
	case AmbulanceArrived:
		return AmbulanceTransporting, true
	case AmbulanceTransporting:
		return s, false
	default:
		return s, false
	}
}

// ActionKind enumerates the specialized actions a category can offer
type ActionKind string

const (
	ActionRequestAmbulance ActionKind = "request_ambulance"
	ActionCallSpecialist   ActionKind = "call_specialist"
	ActionLocateFacility   ActionKind = "locate_facility"
	ActionContactFamily    ActionKind = "contact_family"
	ActionShowGuide        ActionKind = "show_guide"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionRequestAmbulance, ActionCallSpecialist, ActionLocateFacility, ActionContactFamily, ActionShowGuide:
		return true
	default:
		return false
	}
}

type ActionPriority string

const (
	PriorityHigh   ActionPriority = "high"
	PriorityMedium ActionPriority = "medium"
	PriorityLow    ActionPriority = "low"
)

// FacilityKind tags the kind of facility a category prefers, and the kind of a facility
type FacilityKind string

const (
	FacilityHospital      FacilityKind = "hospital"
	FacilityTraumaCenter  FacilityKind = "trauma_center"
	FacilityMaternity     FacilityKind = "maternity"
	FacilityPoisonControl FacilityKind = "poison_control"
	FacilityPediatric     FacilityKind = "pediatric"
	FacilityClinic        FacilityKind = "clinic"
)

// IsHospitalClass reports whether the facility can receive critical patients
func (k FacilityKind) IsHospitalClass() bool {
	switch k {
	case FacilityHospital, FacilityTraumaCenter, FacilityMaternity, FacilityPoisonControl, FacilityPediatric:
		return true
	case FacilityClinic:
		return false
	default:
		return false
	}
}

func (k FacilityKind) Valid() bool {
	switch k {
	case FacilityHospital, FacilityTraumaCenter, FacilityMaternity, FacilityPoisonControl, FacilityPediatric, FacilityClinic:
		return true
	default:
		return false
	}
}

// Urgency is the notification urgency tier, distinct from incident status
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
)

// FollowUpUrgency is how soon a follow-up consultation should happen
type FollowUpUrgency string

const (
	FollowUpImmediate  FollowUpUrgency = "immediate"
	FollowUpWithin24h  FollowUpUrgency = "within_24h"
	FollowUpWithinWeek FollowUpUrgency = "within_week"
)

// Core catalog types

type FirstAidStep struct {
	Number      int    `json:"number" validate:"required,min=1"`
	Instruction string `json:"instruction" validate:"required"`
	Warning     string `json:"warning,omitempty"`
	AudioKey    string `json:"audioKey,omitempty"`
}

type SpecializedAction struct {
	ID       string         `json:"id" validate:"required"`
	Label    string         `json:"label" validate:"required"`
	Kind     ActionKind     `json:"kind" validate:"required,action_kind"`
	Priority ActionPriority `json:"priority" validate:"required,oneof=high medium low"`
}

type EmergencyCategory struct {
	ID             CategoryID          `json:"id" validate:"required"`
	Title          string              `json:"title" validate:"required"`
	Color          string              `json:"color" validate:"required,hexcolor"`
	Emoji          string              `json:"emoji"`
	FirstAidSteps  []FirstAidStep      `json:"firstAidSteps" validate:"required,min=1,dive"`
	Actions        []SpecializedAction `json:"actions" validate:"required,min=1,dive"`
	TargetFacility FacilityKind        `json:"targetFacility" validate:"required,facility_kind"`
}

// Incident types

const PlaceholderAddress = "Location not available"

type EmergencyLocation struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Address    string    `json:"address"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
}

// IsPlaceholder reports whether the location is the sentinel used when no fix was available
func (l EmergencyLocation) IsPlaceholder() bool {
	return l.Address == PlaceholderAddress && l.Latitude == 0 && l.Longitude == 0
}

type EmergencyIncident struct {
	ID               string            `json:"id"`
	Category         EmergencyCategory `json:"category"`
	Status           IncidentStatus    `json:"status"`
	Location         EmergencyLocation `json:"location"`
	CreatedAt        time.Time         `json:"createdAt"`
	EstimatedArrival *time.Time        `json:"estimatedArrival,omitempty"`
	AmbulanceID      string            `json:"ambulanceId,omitempty"`
	HospitalID       string            `json:"hospitalId,omitempty"`
	NotifiedContacts []string          `json:"notifiedContacts"`
	Notes            string            `json:"notes,omitempty"`
}

// Clone returns a deep copy safe to hand to the presentation layer
func (i *EmergencyIncident) Clone() *EmergencyIncident {
	if i == nil {
		return nil
	}

	c := *i
	c.NotifiedContacts = append([]string(nil), i.NotifiedContacts...)
	if i.EstimatedArrival != nil {
		eta := *i.EstimatedArrival
		c.EstimatedArrival = &eta
	}
	if i.Location.Accuracy != nil {
		acc := *i.Location.Accuracy
		c.Location.Accuracy = &acc
	}
	return &c
}

// Tracker types

type TimelineEntry struct {
	Status    AmbulanceStatus `json:"status"`
	DisplayAt time.Time       `json:"displayAt"`
}

type EmergencyTracker struct {
	Incident          EmergencyIncident `json:"incident"`
	AmbulanceStatus   AmbulanceStatus   `json:"ambulanceStatus"`
	EstimatedArrival  time.Time         `json:"estimatedArrival"`
	HospitalNotified  bool              `json:"hospitalNotified"`
	FamilyNotified    bool              `json:"familyNotified"`
	HospitalOutcome   NotifyOutcome     `json:"hospitalOutcome"`
	FamilyOutcome     NotifyOutcome     `json:"familyOutcome"`
	ServicesOutcome   NotifyOutcome     `json:"servicesOutcome"`
	NotifiedHospitals []string          `json:"notifiedHospitals"`
	Timeline          []TimelineEntry   `json:"timeline"`
}

// Clone returns a deep copy of the tracker
func (t *EmergencyTracker) Clone() *EmergencyTracker {
	if t == nil {
		return nil
	}

	c := *t
	c.Incident = *t.Incident.Clone()
	c.NotifiedHospitals = append([]string(nil), t.NotifiedHospitals...)
	c.Timeline = append([]TimelineEntry(nil), t.Timeline...)
	return &c
}

// Post-emergency report

type MedicineAvailability string

const (
	AvailabilityAvailable        MedicineAvailability = "available"
	AvailabilityLimited          MedicineAvailability = "limited"
	AvailabilityPrescriptionOnly MedicineAvailability = "prescription_only"
)

type RecommendedMedicine struct {
	Name            string               `json:"name"`
	Dosage          string               `json:"dosage"`
	Availability    MedicineAvailability `json:"availability"`
	NearestPharmacy string               `json:"nearestPharmacy,omitempty"`
}

type FollowUpConsultation struct {
	Specialty        string          `json:"specialty"`
	Urgency          FollowUpUrgency `json:"urgency"`
	CandidateDoctors []string        `json:"candidateDoctors"`
}

type IncidentSummary struct {
	IncidentID   string     `json:"incidentId"`
	CategoryID   CategoryID `json:"categoryId"`
	CategoryName string     `json:"categoryName"`
	ActionsTaken []string   `json:"actionsTaken"`
	Outcome      string     `json:"outcome"`
	Timestamp    time.Time  `json:"timestamp"`
}

type PostEmergencySupport struct {
	Summary   IncidentSummary       `json:"summary"`
	Medicines []RecommendedMedicine `json:"medicines"`
	FollowUp  FollowUpConsultation  `json:"followUp"`
}
