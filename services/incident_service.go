package services

import (
	"fmt"
	"time"

	"lifeline/metrics"
	"lifeline/models"
	"lifeline/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IncidentService owns the incident lifecycle. It never mutates an incident it
// is given; every transition returns a new value.
type IncidentService struct {
	now func() time.Time
}

func NewIncidentService() *IncidentService {
	return &IncidentService{now: time.Now}
}

// Create starts a new incident in the initiated status. A nil location is
// replaced by the placeholder rather than failing.
func (is *IncidentService) Create(category models.EmergencyCategory, location *models.EmergencyLocation) (*models.EmergencyIncident, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate incident id: %w", err)
	}

	now := is.now()
	loc := PlaceholderLocation(now)
	if location != nil {
		loc = *location
		if location.Accuracy != nil {
			loc.Accuracy = utils.Float64Ptr(*location.Accuracy)
		}
	}

	incident := &models.EmergencyIncident{
		ID:               id.String(),
		Category:         category,
		Status:           models.IncidentStatusInitiated,
		Location:         loc,
		CreatedAt:        now,
		NotifiedContacts: []string{},
	}

	logrus.WithFields(logrus.Fields{
		"incident_id": incident.ID,
		"category":    category.ID,
		"located":     location != nil,
	}).Info("Emergency incident created")

	return incident, nil
}

// PlaceholderLocation is the zero-coordinate location used when no fix is available
func PlaceholderLocation(at time.Time) models.EmergencyLocation {
	return models.EmergencyLocation{
		Latitude:   0,
		Longitude:  0,
		Address:    models.PlaceholderAddress,
		CapturedAt: at,
	}
}

// Advance moves the incident to target, which must be the next status in the
// lifecycle. Anything else returns an *utils.IllegalTransitionError.
func (is *IncidentService) Advance(incident *models.EmergencyIncident, target models.IncidentStatus) (*models.EmergencyIncident, error) {
	if incident == nil {
		return nil, fmt.Errorf("advance: nil incident")
	}

	from := incident.Status
	if !from.Valid() || !target.Valid() || target.Ordinal() != from.Ordinal()+1 {
		metrics.RecordIllegalTransition(string(from), string(target))
		logrus.WithFields(logrus.Fields{
			"incident_id": incident.ID,
			"from":        from,
			"to":          target,
		}).Error("Illegal incident transition rejected")
		return nil, &utils.IllegalTransitionError{From: string(from), To: string(target)}
	}

	next := incident.Clone()
	next.Status = target
	metrics.RecordTransition(string(from), string(target))

	logrus.WithFields(logrus.Fields{
		"incident_id": incident.ID,
		"from":        from,
		"to":          target,
	}).Debug("Incident advanced")

	return next, nil
}

// DeriveFollowUp maps a category onto the follow-up specialty and how soon it is needed
func (is *IncidentService) DeriveFollowUp(categoryID models.CategoryID) (string, models.FollowUpUrgency) {
	switch categoryID {
	case models.CategoryChestPain:
		return "Cardiology", models.FollowUpImmediate
	case models.CategorySnakeBite:
		return "Emergency Medicine", models.FollowUpImmediate
	case models.CategoryRoadAccident:
		return "Orthopedics", models.FollowUpWithin24h
	case models.CategoryBurns:
		return "Dermatology", models.FollowUpWithin24h
	case models.CategoryPregnancyDelivery:
		return "Obstetrics & Gynecology", models.FollowUpWithin24h
	case models.CategoryChildEmergency:
		return "Pediatrics", models.FollowUpWithin24h
	default:
		return "General Medicine", models.FollowUpWithinWeek
	}
}

// DeriveUrgencyForNotification returns the tier that governs facility ranking
func (is *IncidentService) DeriveUrgencyForNotification(categoryID models.CategoryID) models.Urgency {
	switch categoryID {
	case models.CategoryHeartAttack, models.CategoryStroke:
		return models.UrgencyCritical
	case models.CategoryRoadAccident, models.CategorySevereInjury:
		return models.UrgencyHigh
	default:
		return models.UrgencyMedium
	}
}

// SummarizeActions lists what was done during the incident, in the order it happened
func (is *IncidentService) SummarizeActions(incident *models.EmergencyIncident, tracker *models.EmergencyTracker, tally models.NotificationTally) []string {
	actions := []string{
		fmt.Sprintf("Reported emergency: %s", incident.Category.Title),
		"First-aid instructions shown",
	}

	if incident.Location.IsPlaceholder() {
		actions = append(actions, "Location unavailable, proceeded without it")
	} else {
		actions = append(actions, fmt.Sprintf("Location shared: %s", incident.Location.Address))
	}

	switch tally.ServicesOutcome {
	case models.OutcomeSucceeded:
		actions = append(actions, "Emergency services notified")
	case models.OutcomeFailed:
		actions = append(actions, "Emergency services notification failed")
	case models.OutcomePending:
		actions = append(actions, "Emergency services notification pending")
	case models.OutcomeNotAttempted:
	}

	switch tally.FacilitiesOutcome {
	case models.OutcomeSucceeded:
		actions = append(actions, fmt.Sprintf("Notified %d nearby facilities", len(tally.FacilityNames)))
	case models.OutcomeFailed:
		actions = append(actions, "Nearby facilities could not be notified")
	case models.OutcomeNotAttempted:
		actions = append(actions, "No nearby facilities were contacted")
	case models.OutcomePending:
	}

	switch tally.FamilyOutcome {
	case models.OutcomeSucceeded:
		actions = append(actions, fmt.Sprintf("Notified %d family contacts", len(tally.ContactIDs)))
	case models.OutcomeFailed:
		actions = append(actions, "Family contacts could not be notified")
	case models.OutcomeNotAttempted:
		actions = append(actions, "No family contacts registered")
	case models.OutcomePending:
	}

	if tracker != nil {
		actions = append(actions, "Ambulance dispatched")
		if tracker.AmbulanceStatus == models.AmbulanceTransporting {
			actions = append(actions, "Patient transported to hospital")
		}
	}

	return actions
}

// BuildPostEmergencySupport derives the terminal report
func (is *IncidentService) BuildPostEmergencySupport(incident *models.EmergencyIncident, tracker *models.EmergencyTracker, actions []string) *models.PostEmergencySupport {
	specialty, urgency := is.DeriveFollowUp(incident.Category.ID)

	doctors := append([]string{}, doctorDirectory[specialty]...)
	if len(doctors) == 0 {
		doctors = append(doctors, doctorDirectory["General Medicine"]...)
	}

	return &models.PostEmergencySupport{
		Summary: models.IncidentSummary{
			IncidentID:   incident.ID,
			CategoryID:   incident.Category.ID,
			CategoryName: incident.Category.Title,
			ActionsTaken: append([]string{}, actions...),
			Outcome:      outcomeText(incident, tracker),
			Timestamp:    is.now(),
		},
		Medicines: medicinesFor(incident.Category.ID),
		FollowUp: models.FollowUpConsultation{
			Specialty:        specialty,
			Urgency:          urgency,
			CandidateDoctors: doctors,
		},
	}
}

func outcomeText(incident *models.EmergencyIncident, tracker *models.EmergencyTracker) string {
	switch incident.Status {
	case models.IncidentStatusResolved:
		return "Patient reached the hospital and the emergency has been resolved"
	case models.IncidentStatusAtHospital:
		return "Patient reached the hospital"
	case models.IncidentStatusInTransit:
		return "Patient is being transported to the hospital"
	case models.IncidentStatusInitiated, models.IncidentStatusFirstAidShown, models.IncidentStatusAmbulanceCalled:
		if tracker != nil {
			return "Ambulance has been dispatched"
		}
		return "Emergency response in progress"
	default:
		return "Emergency response in progress"
	}
}

var doctorDirectory = map[string][]string{
	"Cardiology":              {"Dr. Anil Mehta", "Dr. Priya Raghavan"},
	"Emergency Medicine":      {"Dr. Suresh Iyer", "Dr. Kavitha Nair"},
	"Orthopedics":             {"Dr. Rajesh Kumar", "Dr. Meera Pillai"},
	"Dermatology":             {"Dr. Farah Khan", "Dr. Arjun Das"},
	"Obstetrics & Gynecology": {"Dr. Lakshmi Subramanian", "Dr. Neha Kapoor"},
	"Pediatrics":              {"Dr. Vikram Rao", "Dr. Shalini Gupta"},
	"General Medicine":        {"Dr. Ramesh Sharma", "Dr. Divya Krishnan"},
}

func medicinesFor(categoryID models.CategoryID) []models.RecommendedMedicine {
	pharmacy := "Nearest 24x7 pharmacy"
	switch categoryID {
	case models.CategoryChestPain, models.CategoryHeartAttack:
		return []models.RecommendedMedicine{
			{Name: "Aspirin", Dosage: "75 mg once daily", Availability: models.AvailabilityAvailable, NearestPharmacy: pharmacy},
			{Name: "Atorvastatin", Dosage: "20 mg at night", Availability: models.AvailabilityPrescriptionOnly},
			{Name: "Sorbitrate", Dosage: "5 mg under the tongue as needed", Availability: models.AvailabilityPrescriptionOnly},
		}
	case models.CategoryStroke:
		return []models.RecommendedMedicine{
			{Name: "Clopidogrel", Dosage: "75 mg once daily", Availability: models.AvailabilityPrescriptionOnly},
			{Name: "Atorvastatin", Dosage: "40 mg at night", Availability: models.AvailabilityPrescriptionOnly},
		}
	case models.CategoryBreathingDifficulty:
		return []models.RecommendedMedicine{
			{Name: "Salbutamol inhaler", Dosage: "2 puffs as needed", Availability: models.AvailabilityPrescriptionOnly, NearestPharmacy: pharmacy},
			{Name: "Montelukast", Dosage: "10 mg at night", Availability: models.AvailabilityPrescriptionOnly},
		}
	case models.CategoryRoadAccident, models.CategorySevereInjury, models.CategorySevereTrauma:
		return []models.RecommendedMedicine{
			{Name: "Paracetamol", Dosage: "500 mg every 6 hours", Availability: models.AvailabilityAvailable, NearestPharmacy: pharmacy},
			{Name: "Ibuprofen", Dosage: "400 mg every 8 hours after food", Availability: models.AvailabilityAvailable, NearestPharmacy: pharmacy},
			{Name: "Povidone-iodine solution", Dosage: "Apply to wounds twice daily", Availability: models.AvailabilityAvailable},
		}
	case models.CategoryBurns:
		return []models.RecommendedMedicine{
			{Name: "Silver sulfadiazine cream", Dosage: "Apply thin layer twice daily", Availability: models.AvailabilityPrescriptionOnly},
			{Name: "Paracetamol", Dosage: "500 mg every 6 hours", Availability: models.AvailabilityAvailable, NearestPharmacy: pharmacy},
		}
	case models.CategorySnakeBite:
		return []models.RecommendedMedicine{
			{Name: "Anti-snake venom", Dosage: "Hospital administered only", Availability: models.AvailabilityLimited},
			{Name: "Tetanus toxoid", Dosage: "0.5 ml single dose", Availability: models.AvailabilityPrescriptionOnly},
		}
	case models.CategoryPoisoning:
		return []models.RecommendedMedicine{
			{Name: "Activated charcoal", Dosage: "As directed by a doctor", Availability: models.AvailabilityLimited},
			{Name: "Oral rehydration salts", Dosage: "1 sachet in 1 litre of water", Availability: models.AvailabilityAvailable, NearestPharmacy: pharmacy},
		}
	case models.CategoryPregnancyDelivery:
		return []models.RecommendedMedicine{
			{Name: "Iron and folic acid", Dosage: "1 tablet daily", Availability: models.AvailabilityAvailable, NearestPharmacy: pharmacy},
			{Name: "Calcium", Dosage: "500 mg twice daily", Availability: models.AvailabilityAvailable},
		}
	case models.CategoryChildEmergency:
		return []models.RecommendedMedicine{
			{Name: "Paracetamol syrup", Dosage: "15 mg/kg every 6 hours", Availability: models.AvailabilityAvailable, NearestPharmacy: pharmacy},
			{Name: "Oral rehydration salts", Dosage: "As needed for dehydration", Availability: models.AvailabilityAvailable},
		}
	default:
		return []models.RecommendedMedicine{
			{Name: "Paracetamol", Dosage: "500 mg every 6 hours as needed", Availability: models.AvailabilityAvailable, NearestPharmacy: pharmacy},
		}
	}
}
