package services

import (
	"errors"
	"testing"
	"time"

	"lifeline/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingService_StepsToTransporting(t *testing.T) {
	incidents := NewIncidentService()
	incident, err := incidents.Create(testCategory(t, models.CategoryRoadAccident), nil)
	require.NoError(t, err)

	ts := NewTrackingService()
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return fixed }

	tracker := ts.Start(incident, models.NewNotificationTally())
	assert.Equal(t, models.AmbulanceDispatched, tracker.AmbulanceStatus)
	assert.Equal(t, fixed.Add(15*time.Minute), tracker.EstimatedArrival)
	require.NotNil(t, tracker.Incident.EstimatedArrival)
	assert.Nil(t, incident.EstimatedArrival)
	require.Len(t, tracker.Timeline, 1)

	want := []models.AmbulanceStatus{models.AmbulanceEnRoute, models.AmbulanceArrived, models.AmbulanceTransporting}
	for _, status := range want {
		prev := tracker
		tracker, err = ts.Step(tracker)
		require.NoError(t, err)
		assert.Equal(t, status, tracker.AmbulanceStatus)
		assert.Len(t, prev.Timeline, len(tracker.Timeline)-1)
	}

	for i := 1; i < len(tracker.Timeline); i++ {
		assert.True(t, tracker.Timeline[i].DisplayAt.After(tracker.Timeline[i-1].DisplayAt))
	}

	again, err := ts.Step(tracker)
	assert.Nil(t, again)
	assert.True(t, errors.Is(err, ErrTrackerComplete))
}

func TestTrackingService_ApplyTallyFollowsLists(t *testing.T) {
	incident, err := NewIncidentService().Create(testCategory(t, models.CategoryBurns), nil)
	require.NoError(t, err)

	ts := NewTrackingService()
	tracker := ts.Start(incident, models.NewNotificationTally())
	assert.False(t, tracker.HospitalNotified)
	assert.False(t, tracker.FamilyNotified)
	assert.Equal(t, models.OutcomePending, tracker.HospitalOutcome)

	tally := models.NewNotificationTally()
	tally.FacilitiesOutcome = models.OutcomeFailed
	tally.FamilyOutcome = models.OutcomeSucceeded
	tally.ContactIDs = []string{"c-1", "c-2"}
	ts.ApplyTally(tracker, tally)

	assert.False(t, tracker.HospitalNotified)
	assert.True(t, tracker.FamilyNotified)
	assert.Equal(t, models.OutcomeFailed, tracker.HospitalOutcome)
	assert.Empty(t, tracker.NotifiedHospitals)
	assert.Equal(t, []string{"c-1", "c-2"}, tracker.Incident.NotifiedContacts)
}
