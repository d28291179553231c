package services

import (
	"errors"
	"fmt"
	"time"

	"lifeline/models"
)

// ErrTrackerComplete is returned when stepping a tracker already transporting
var ErrTrackerComplete = errors.New("tracker already transporting")

const ambulanceETAHorizon = 15 * time.Minute

// TrackingService simulates ambulance progress. It has no timer of its own;
// every step is requested by the caller.
type TrackingService struct {
	now func() time.Time
}

func NewTrackingService() *TrackingService {
	return &TrackingService{now: time.Now}
}

// Start creates a dispatched tracker for an incident, with flags taken from the tally
func (ts *TrackingService) Start(incident *models.EmergencyIncident, tally models.NotificationTally) *models.EmergencyTracker {
	eta := ts.now().Add(ambulanceETAHorizon)

	tracker := &models.EmergencyTracker{
		Incident:          *incident.Clone(),
		AmbulanceStatus:   models.AmbulanceDispatched,
		EstimatedArrival:  eta,
		NotifiedHospitals: []string{},
		Timeline: []models.TimelineEntry{
			{Status: models.AmbulanceDispatched, DisplayAt: displayTime(incident.CreatedAt, models.AmbulanceDispatched)},
		},
	}
	tracker.Incident.EstimatedArrival = &eta

	ts.ApplyTally(tracker, tally)
	return tracker
}

// Step advances the sub-status by exactly one and returns a new tracker
func (ts *TrackingService) Step(tracker *models.EmergencyTracker) (*models.EmergencyTracker, error) {
	if tracker == nil {
		return nil, fmt.Errorf("step: nil tracker")
	}

	next, ok := tracker.AmbulanceStatus.Next()
	if !ok {
		return nil, ErrTrackerComplete
	}

	stepped := tracker.Clone()
	stepped.AmbulanceStatus = next
	stepped.Timeline = append(stepped.Timeline, models.TimelineEntry{
		Status:    next,
		DisplayAt: displayTime(tracker.Incident.CreatedAt, next),
	})
	return stepped, nil
}

// ApplyTally refreshes the notification flags in place. The booleans follow
// the recorded lists, not the ambulance sub-status.
func (ts *TrackingService) ApplyTally(tracker *models.EmergencyTracker, tally models.NotificationTally) {
	tracker.HospitalOutcome = tally.FacilitiesOutcome
	tracker.FamilyOutcome = tally.FamilyOutcome
	tracker.ServicesOutcome = tally.ServicesOutcome
	tracker.NotifiedHospitals = append([]string{}, tally.FacilityNames...)
	tracker.HospitalNotified = len(tally.FacilityNames) > 0
	tracker.FamilyNotified = len(tally.ContactIDs) > 0
	tracker.Incident.NotifiedContacts = append([]string{}, tally.ContactIDs...)
}

// displayTime is the timeline label for a sub-status, offset from the incident's creation
func displayTime(createdAt time.Time, status models.AmbulanceStatus) time.Time {
	switch status {
	case models.AmbulanceDispatched:
		return createdAt
	case models.AmbulanceEnRoute:
		return createdAt.Add(2 * time.Minute)
	case models.AmbulanceArrived:
		return createdAt.Add(5 * time.Minute)
	case models.AmbulanceTransporting:
		return createdAt.Add(10 * time.Minute)
	default:
		return createdAt
	}
}
