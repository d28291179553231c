package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"lifeline/models"
	"lifeline/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wizardFixture struct {
	source     PositionSource
	facilities FacilityLookup
	contacts   ContactDirectory
	hotline    NotificationChannel
	facility   NotificationChannel
	contact    NotificationChannel
	sink       SpeechSink
	audio      bool
	language   models.Language
	onReport   func(ctx context.Context, report *models.PostEmergencySupport)

	locationTimeout time.Duration
	hotlineGrace    time.Duration
}

func newTestWizard(t *testing.T, f wizardFixture) *Wizard {
	t.Helper()
	catalog := testCatalog(t)
	if f.locationTimeout == 0 {
		f.locationTimeout = 200 * time.Millisecond
	}

	w := NewWizard(WizardDeps{
		Catalog:   catalog,
		Incidents: NewIncidentService(),
		Location:  NewLocationService(f.source, f.locationTimeout, time.Hour),
		Notifications: NewNotificationService(catalog, f.facilities, f.contacts, NotificationChannels{
			Hotline:  f.hotline,
			Facility: f.facility,
			Contact:  f.contact,
		}, NotificationOptions{FanoutTimeout: time.Second}),
		Audio:    NewAudioService(f.sink, time.Millisecond),
		Tracking: NewTrackingService(),
	}, WizardOptions{
		SessionID:    "session-1",
		Language:     f.language,
		AudioEnabled: f.audio,
		HotlineGrace: f.hotlineGrace,
		OnReport:     f.onReport,
	})
	t.Cleanup(w.Close)
	return w
}

func awaitDispatch(t *testing.T, w *Wizard) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.AwaitDispatch(ctx))
}

func requireCode(t *testing.T, err error, code string) utils.ServiceError {
	t.Helper()
	serviceErr, ok := utils.GetServiceError(err)
	require.True(t, ok, "expected a service error, got %v", err)
	assert.Equal(t, code, serviceErr.Code)
	return serviceErr
}

func advanceTo(t *testing.T, w *Wizard, stage models.WizardStage) models.WizardSnapshot {
	t.Helper()
	snap := w.Snapshot()
	for snap.State.Stage != stage {
		var err error
		snap, err = w.Advance(context.Background())
		require.NoError(t, err)
	}
	return snap
}

func TestWizard_RoadAccidentEndToEnd(t *testing.T) {
	asha := testContact("Asha", "+919800000001")
	ravi := testContact("Ravi", "+919800000002")
	hotline := newRecordingChannel()

	var (
		reportMu sync.Mutex
		archived *models.PostEmergencySupport
	)

	w := newTestWizard(t, wizardFixture{
		source: &StaticPositionSource{
			Granted: true,
			Fix:     &PositionFix{Latitude: 12.9716, Longitude: 77.5946, Address: "MG Road, Bengaluru"},
		},
		facilities: NewStaticFacilityProvider(nearbyFacilities(), 25),
		contacts:   StaticContactDirectory{asha, ravi},
		hotline:    hotline,
		facility:   newRecordingChannel("Corner Clinic"),
		contact:    newRecordingChannel(),
		onReport: func(ctx context.Context, report *models.PostEmergencySupport) {
			reportMu.Lock()
			archived = report
			reportMu.Unlock()
		},
	})

	snap, err := w.SelectCategory(models.CategoryRoadAccident)
	require.NoError(t, err)
	require.NotNil(t, snap.State.Category)
	assert.Equal(t, models.CategoryRoadAccident, snap.State.Category.ID)

	snap = advanceTo(t, w, models.StageFirstAid)
	require.NotNil(t, snap.Incident)
	assert.Equal(t, models.IncidentStatusFirstAidShown, snap.Incident.Status)
	incidentID := snap.Incident.ID

	snap = advanceTo(t, w, models.StageTracking)
	require.NotNil(t, snap.Tracker)
	assert.Equal(t, models.IncidentStatusAmbulanceCalled, snap.Incident.Status)
	assert.Equal(t, incidentID, snap.Incident.ID)

	awaitDispatch(t, w)
	snap = w.Snapshot()

	assert.Equal(t, "MG Road, Bengaluru", snap.Incident.Location.Address)
	assert.Equal(t, models.OutcomeSucceeded, snap.Notifications.ServicesOutcome)
	assert.Equal(t, models.OutcomeSucceeded, snap.Notifications.FacilitiesOutcome)
	assert.Equal(t, models.OutcomeSucceeded, snap.Notifications.FamilyOutcome)
	assert.Equal(t, []string{"City Hospital", "Trauma Centre"}, snap.Tracker.NotifiedHospitals)
	assert.True(t, snap.Tracker.HospitalNotified)
	assert.True(t, snap.Tracker.FamilyNotified)
	assert.ElementsMatch(t, []string{asha.ContactID(), ravi.ContactID()}, snap.Incident.NotifiedContacts)
	assert.Equal(t, 1, hotline.calls())

	_, err = w.Advance(context.Background())
	requireCode(t, err, utils.ErrCodeStagePrecondition)

	for i := 0; i < 3; i++ {
		snap, err = w.StepAmbulance()
		require.NoError(t, err)
	}
	assert.Equal(t, models.AmbulanceTransporting, snap.Tracker.AmbulanceStatus)

	_, err = w.StepAmbulance()
	requireCode(t, err, utils.ErrCodeTrackerComplete)

	snap, err = w.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StagePostEmergency, snap.State.Stage)
	assert.Equal(t, models.IncidentStatusResolved, snap.Incident.Status)
	require.NotNil(t, snap.Report)
	assert.Equal(t, "Orthopedics", snap.Report.FollowUp.Specialty)
	assert.Contains(t, snap.Report.Summary.ActionsTaken, "Notified 2 nearby facilities")
	assert.Contains(t, snap.Report.Summary.ActionsTaken, "Notified 2 family contacts")

	_, err = w.Advance(context.Background())
	requireCode(t, err, utils.ErrCodeStagePrecondition)

	awaitDispatch(t, w)
	reportMu.Lock()
	defer reportMu.Unlock()
	require.NotNil(t, archived)
	assert.Equal(t, incidentID, archived.Summary.IncidentID)
}

func TestWizard_ChestPainWithoutLocation(t *testing.T) {
	lookup := &countingLookup{next: NewStaticFacilityProvider(nearbyFacilities(), 25)}
	hotline := newRecordingChannel()
	facility := newRecordingChannel()

	w := newTestWizard(t, wizardFixture{
		source:     &StaticPositionSource{Granted: false},
		facilities: lookup,
		contacts:   StaticContactDirectory{},
		hotline:    hotline,
		facility:   facility,
		contact:    newRecordingChannel(),
	})

	_, err := w.SelectCategory(models.CategoryChestPain)
	require.NoError(t, err)
	advanceTo(t, w, models.StageTracking)
	awaitDispatch(t, w)

	snap := w.Snapshot()
	assert.Equal(t, models.StageTracking, snap.State.Stage)
	assert.True(t, snap.Incident.Location.IsPlaceholder())
	assert.Equal(t, 1, hotline.calls())
	assert.Equal(t, "false", hotline.sent()[0].Metadata["located"])
	assert.Equal(t, models.OutcomeSucceeded, snap.Notifications.ServicesOutcome)
	assert.Equal(t, models.OutcomeNotAttempted, snap.Notifications.FacilitiesOutcome)
	assert.Equal(t, models.OutcomeNotAttempted, snap.Notifications.FamilyOutcome)
	assert.Empty(t, snap.Tracker.NotifiedHospitals)
	assert.False(t, snap.Tracker.HospitalNotified)
	assert.False(t, snap.Tracker.FamilyNotified)
	assert.Equal(t, 0, lookup.count)
	assert.Equal(t, 0, facility.calls())
}

func TestWizard_HotlineDoesNotWaitForSlowLocation(t *testing.T) {
	source := NewReportedPositionSource(time.Minute)
	hotline := newRecordingChannel()
	w := newTestWizard(t, wizardFixture{
		source:          source,
		hotline:         hotline,
		locationTimeout: 5 * time.Second,
		hotlineGrace:    50 * time.Millisecond,
	})

	_, err := w.SelectCategory(models.CategoryChestPain)
	require.NoError(t, err)
	advanceTo(t, w, models.StageFirstAid)

	require.Eventually(t, func() bool { return hotline.calls() == 1 }, time.Second, 10*time.Millisecond)
	sent := hotline.sent()[0]
	assert.Equal(t, "false", sent.Metadata["located"])
	assert.Nil(t, sent.Location)

	// the fix still lands on the incident once the device answers
	source.ReportPosition(PositionFix{Latitude: 12.9716, Longitude: 77.5946, Address: "MG Road, Bengaluru"})
	awaitDispatch(t, w)

	snap := w.Snapshot()
	require.NotNil(t, snap.Incident)
	assert.Equal(t, "MG Road, Bengaluru", snap.Incident.Location.Address)
	assert.Equal(t, 1, hotline.calls())
}

func TestWizard_HotlineCarriesFixWithinGrace(t *testing.T) {
	hotline := newRecordingChannel()
	w := newTestWizard(t, wizardFixture{
		source: &StaticPositionSource{
			Granted: true,
			Fix:     &PositionFix{Latitude: 12.9716, Longitude: 77.5946, Address: "MG Road, Bengaluru"},
		},
		hotline:      hotline,
		hotlineGrace: time.Second,
	})

	_, err := w.SelectCategory(models.CategoryChestPain)
	require.NoError(t, err)
	advanceTo(t, w, models.StageFirstAid)
	awaitDispatch(t, w)

	require.Equal(t, 1, hotline.calls())
	sent := hotline.sent()[0]
	assert.Equal(t, "true", sent.Metadata["located"])
	require.NotNil(t, sent.Location)
	assert.Equal(t, "MG Road, Bengaluru", sent.Location.Address)
}

func TestWizard_SelectCategory(t *testing.T) {
	w := newTestWizard(t, wizardFixture{source: &StaticPositionSource{}})

	_, err := w.SelectCategory(models.CategoryID("alien_abduction"))
	requireCode(t, err, utils.ErrCodeUnknownCategory)

	_, err = w.Advance(context.Background())
	requireCode(t, err, utils.ErrCodeStagePrecondition)

	_, err = w.SelectCategory(models.CategoryBurns)
	require.NoError(t, err)
	snap, err := w.SelectCategory(models.CategoryStroke)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryStroke, snap.State.Category.ID)

	advanceTo(t, w, models.StageFirstAid)
	_, err = w.SelectCategory(models.CategoryBurns)
	requireCode(t, err, utils.ErrCodeStagePrecondition)

	w.Back()
	_, err = w.SelectCategory(models.CategoryBurns)
	requireCode(t, err, utils.ErrCodeIncidentAlreadyActive)
	awaitDispatch(t, w)
}

func TestWizard_BackNeverUndoesTheIncident(t *testing.T) {
	w := newTestWizard(t, wizardFixture{source: &StaticPositionSource{}, hotline: newRecordingChannel()})

	snap := w.Back()
	assert.Equal(t, models.StageTypeSelection, snap.State.Stage)

	_, err := w.SelectCategory(models.CategoryBurns)
	require.NoError(t, err)
	snap = advanceTo(t, w, models.StageEmergencyActions)
	incidentID := snap.Incident.ID

	snap = w.Back()
	assert.Equal(t, models.StageFirstAid, snap.State.Stage)
	assert.Equal(t, models.IncidentStatusFirstAidShown, snap.Incident.Status)

	snap, err = w.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StageEmergencyActions, snap.State.Stage)
	assert.Equal(t, incidentID, snap.Incident.ID)
	awaitDispatch(t, w)
}

func TestWizard_CancelBeforeAnythingStartedIsImmediate(t *testing.T) {
	w := newTestWizard(t, wizardFixture{source: &StaticPositionSource{}})

	_, err := w.SelectCategory(models.CategoryBurns)
	require.NoError(t, err)

	snap, err := w.Cancel()
	require.NoError(t, err)
	assert.Nil(t, snap.State.Category)
	assert.Nil(t, snap.Incident)
	assert.False(t, snap.State.CancelPending)
}

func TestWizard_CancelActiveFlowNeedsConfirmation(t *testing.T) {
	w := newTestWizard(t, wizardFixture{source: &StaticPositionSource{}, hotline: newRecordingChannel()})

	_, err := w.SelectCategory(models.CategorySnakeBite)
	require.NoError(t, err)
	advanceTo(t, w, models.StageFirstAid)
	awaitDispatch(t, w)

	snap, err := w.Cancel()
	serviceErr := requireCode(t, err, utils.ErrCodeCancelConfirmation)
	assert.Equal(t, http.StatusAccepted, serviceErr.StatusCode)
	assert.True(t, errors.Is(err, ErrCancelConfirmationRequired))
	assert.True(t, snap.State.CancelPending)
	assert.Equal(t, models.StageFirstAid, snap.State.Stage)
	require.NotNil(t, snap.Incident)

	snap = w.DismissCancel()
	assert.False(t, snap.State.CancelPending)
	assert.NotNil(t, snap.Incident)

	_, err = w.ConfirmCancel()
	requireCode(t, err, utils.ErrCodeNoPendingCancel)

	_, err = w.Cancel()
	require.Error(t, err)
	snap, err = w.ConfirmCancel()
	require.NoError(t, err)
	assert.Equal(t, models.StageTypeSelection, snap.State.Stage)
	assert.Nil(t, snap.Incident)
	assert.Nil(t, snap.State.Category)
	assert.Equal(t, models.OutcomePending, snap.Notifications.ServicesOutcome)
}

func TestWizard_NavigationDismissesPendingCancel(t *testing.T) {
	w := newTestWizard(t, wizardFixture{source: &StaticPositionSource{}, hotline: newRecordingChannel()})

	_, err := w.SelectCategory(models.CategoryBurns)
	require.NoError(t, err)
	advanceTo(t, w, models.StageFirstAid)

	_, err = w.Cancel()
	require.Error(t, err)

	snap, err := w.Advance(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.State.CancelPending)
	awaitDispatch(t, w)
}

func TestWizard_LateResultsAfterResetAreDropped(t *testing.T) {
	release := make(chan struct{})
	hotline := ChannelFunc(func(ctx context.Context, payload models.NotificationPayload) error {
		<-release
		return nil
	})

	w := newTestWizard(t, wizardFixture{source: &StaticPositionSource{}, hotline: hotline})

	_, err := w.SelectCategory(models.CategoryBurns)
	require.NoError(t, err)
	advanceTo(t, w, models.StageFirstAid)

	_, err = w.Cancel()
	require.Error(t, err)
	_, err = w.ConfirmCancel()
	require.NoError(t, err)

	close(release)
	awaitDispatch(t, w)

	snap := w.Snapshot()
	assert.Nil(t, snap.Incident)
	assert.Equal(t, models.OutcomePending, snap.Notifications.ServicesOutcome)
}

func TestWizard_AudioFollowsSessionLanguage(t *testing.T) {
	sink := &recordingSink{}
	w := newTestWizard(t, wizardFixture{
		source:   &StaticPositionSource{},
		hotline:  newRecordingChannel(),
		sink:     sink,
		audio:    true,
		language: models.Language("de"),
	})

	snap := w.SetLanguage(models.Language("xx"))
	assert.Equal(t, models.LanguageEnglish, snap.State.Language)

	snap = w.SetLanguage(models.LanguageTamil)
	assert.Equal(t, models.LanguageTamil, snap.State.Language)

	_, err := w.SelectCategory(models.CategoryBurns)
	require.NoError(t, err)
	advanceTo(t, w, models.StageFirstAid)
	awaitDispatch(t, w)

	requests := sink.all()
	require.NotEmpty(t, requests)
	for _, r := range requests {
		assert.Equal(t, "ta-IN", r.LanguageTag)
	}
}

func TestWizard_AudioDisabledStaysSilent(t *testing.T) {
	sink := &recordingSink{}
	w := newTestWizard(t, wizardFixture{source: &StaticPositionSource{}, hotline: newRecordingChannel(), sink: sink, audio: true})

	snap := w.SetAudioEnabled(false)
	assert.False(t, snap.State.AudioEnabled)

	_, err := w.SelectCategory(models.CategoryBurns)
	require.NoError(t, err)
	advanceTo(t, w, models.StageTracking)
	awaitDispatch(t, w)

	assert.Empty(t, sink.all())
}
