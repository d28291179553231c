package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"lifeline/models"
	"lifeline/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu        sync.Mutex
	sinks     map[string]*recordingSink
	snapshots []models.WizardSnapshot
	progress  []models.NotificationTally
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sinks: map[string]*recordingSink{}}
}

func (rn *recordingNotifier) SpeechSink(sessionID string) SpeechSink {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	sink := &recordingSink{}
	rn.sinks[sessionID] = sink
	return sink
}

func (rn *recordingNotifier) PublishSnapshot(snapshot models.WizardSnapshot) {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	rn.snapshots = append(rn.snapshots, snapshot)
}

func (rn *recordingNotifier) PublishProgress(sessionID, incidentID string, tally models.NotificationTally) {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	rn.progress = append(rn.progress, tally)
}

func (rn *recordingNotifier) progressCount() int {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return len(rn.progress)
}

func newTestSessionService(t *testing.T, notifier SessionNotifier) *SessionService {
	t.Helper()
	return NewSessionService(
		testCatalog(t),
		NewStaticFacilityProvider(nearbyFacilities(), 25),
		NotificationChannels{Hotline: newRecordingChannel(), Facility: newRecordingChannel(), Contact: newRecordingChannel()},
		func(userID string) ContactDirectory { return StaticContactDirectory{testContact("Asha", "+919800000001")} },
		nil,
		notifier,
		SessionConfig{
			LocationTimeout:  200 * time.Millisecond,
			TrackingInterval: time.Hour,
			CountdownCadence: time.Millisecond,
			DefaultLanguage:  models.Language("zz"),
		},
	)
}

func TestSessionService_OwnershipIsEnforced(t *testing.T) {
	ss := newTestSessionService(t, nil)
	t.Cleanup(ss.Shutdown)

	session, snap := ss.Create("user-1")
	assert.Equal(t, session.ID, snap.SessionID)
	assert.Equal(t, models.LanguageEnglish, snap.State.Language)
	assert.Equal(t, 1, ss.Count())

	got, err := ss.Get(session.ID, "user-1")
	require.NoError(t, err)
	assert.Same(t, session, got)

	_, err = ss.Get(session.ID, "user-2")
	requireCode(t, err, utils.ErrCodeSessionOwnershipMismatch)

	_, err = ss.Get("missing", "user-1")
	requireCode(t, err, utils.ErrCodeNotFound)
}

func TestSessionService_ReportedLocationFeedsTheWizard(t *testing.T) {
	notifier := newRecordingNotifier()
	ss := newTestSessionService(t, notifier)
	t.Cleanup(ss.Shutdown)

	session, _ := ss.Create("user-1")
	session.ReportLocation(models.ReportLocationRequest{
		PermissionGranted: true,
		Latitude:          12.9716,
		Longitude:         77.5946,
		Address:           "MG Road, Bengaluru",
	})

	_, err := session.Wizard.SelectCategory(models.CategoryRoadAccident)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = session.Wizard.Advance(context.Background())
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, session.Wizard.AwaitDispatch(ctx))

	snap := session.Wizard.Snapshot()
	assert.Equal(t, "MG Road, Bengaluru", snap.Incident.Location.Address)
	assert.Equal(t, models.OutcomeSucceeded, snap.Notifications.FacilitiesOutcome)
	assert.Len(t, snap.Incident.NotifiedContacts, 1)
	assert.Equal(t, 3, notifier.progressCount())
}

func TestSessionService_Reap(t *testing.T) {
	ss := newTestSessionService(t, nil)
	t.Cleanup(ss.Shutdown)

	idle, _ := ss.Create("user-1")
	ss.Create("user-2")

	idle.Wizard.mu.Lock()
	idle.Wizard.lastActivity = time.Now().Add(-3 * time.Hour)
	idle.Wizard.mu.Unlock()

	assert.Equal(t, 1, ss.Reap(2*time.Hour))
	assert.Equal(t, 1, ss.Count())

	_, err := ss.Get(idle.ID, "user-1")
	requireCode(t, err, utils.ErrCodeNotFound)
}

func TestSession_StartCountdownUsesSessionLanguage(t *testing.T) {
	notifier := newRecordingNotifier()
	ss := newTestSessionService(t, notifier)
	t.Cleanup(ss.Shutdown)

	session, _ := ss.Create("user-1")
	session.Wizard.SetLanguage(models.LanguageHindi)
	session.StartCountdown(3)

	notifier.mu.Lock()
	sink := notifier.sinks[session.ID]
	notifier.mu.Unlock()

	require.Eventually(t, func() bool { return len(sink.all()) == 3 }, time.Second, 5*time.Millisecond)
	for _, r := range sink.all() {
		assert.Equal(t, SpeechKindCountdown, r.Kind)
		assert.Equal(t, "hi-IN", r.LanguageTag)
	}
}
