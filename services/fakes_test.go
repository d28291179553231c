package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"lifeline/models"
	"lifeline/utils"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errSendFailed = errors.New("send failed")

// recordingChannel records every payload and fails for recipients in failFor
type recordingChannel struct {
	mu       sync.Mutex
	payloads []models.NotificationPayload
	failFor  map[string]bool
	failAll  bool
}

func newRecordingChannel(failFor ...string) *recordingChannel {
	rc := &recordingChannel{failFor: map[string]bool{}}
	for _, name := range failFor {
		rc.failFor[name] = true
	}
	return rc
}

func (rc *recordingChannel) Send(ctx context.Context, payload models.NotificationPayload) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.payloads = append(rc.payloads, payload)
	if rc.failAll || rc.failFor[payload.RecipientName] {
		return errSendFailed
	}
	return nil
}

func (rc *recordingChannel) calls() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.payloads)
}

func (rc *recordingChannel) sent() []models.NotificationPayload {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]models.NotificationPayload(nil), rc.payloads...)
}

// countingLookup wraps a lookup and counts calls
type countingLookup struct {
	mu    sync.Mutex
	count int
	next  FacilityLookup
}

func (cl *countingLookup) FindNearby(ctx context.Context, location models.EmergencyLocation, kind models.FacilityKind) ([]models.Facility, error) {
	cl.mu.Lock()
	cl.count++
	cl.mu.Unlock()
	if cl.next == nil {
		return nil, nil
	}
	return cl.next.FindNearby(ctx, location, kind)
}

// failingLookup stands in for an unreachable facility store
type failingLookup struct{ err error }

func (fl failingLookup) FindNearby(ctx context.Context, location models.EmergencyLocation, kind models.FacilityKind) ([]models.Facility, error) {
	return nil, fl.err
}

// failingDirectory stands in for an unreachable contact store
type failingDirectory struct{ err error }

func (fd failingDirectory) ListContacts(ctx context.Context) ([]models.EmergencyContact, error) {
	return nil, fd.err
}

// recordingSink collects speech requests
type recordingSink struct {
	mu       sync.Mutex
	requests []SpeechRequest
}

func (rs *recordingSink) Speak(ctx context.Context, req SpeechRequest) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.requests = append(rs.requests, req)
	return nil
}

func (rs *recordingSink) all() []SpeechRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]SpeechRequest(nil), rs.requests...)
}

func testCatalog(t *testing.T) *CatalogService {
	t.Helper()
	catalog, err := NewDefaultCatalogService(utils.NewValidationService())
	require.NoError(t, err)
	return catalog
}

func testCategory(t *testing.T, id models.CategoryID) models.EmergencyCategory {
	t.Helper()
	category, ok := testCatalog(t).Get(id)
	require.True(t, ok)
	return category
}

func testContact(name, phone string) models.EmergencyContact {
	return models.EmergencyContact{
		ID:     primitive.NewObjectID(),
		UserID: "user-1",
		Name:   name,
		Phone:  phone,
	}
}

func testLocation() *models.EmergencyLocation {
	return &models.EmergencyLocation{
		Latitude:  12.9716,
		Longitude: 77.5946,
		Address:   "MG Road, Bengaluru",
	}
}

// nearbyFacilities sits a hospital, a trauma center and a clinic 1, 2 and 3 km north of testLocation
func nearbyFacilities() []StaticFacility {
	return []StaticFacility{
		{Facility: models.Facility{ID: "f-hospital", Name: "City Hospital", Kind: models.FacilityHospital}, Latitude: 12.9806, Longitude: 77.5946},
		{Facility: models.Facility{ID: "f-trauma", Name: "Trauma Centre", Kind: models.FacilityTraumaCenter}, Latitude: 12.9896, Longitude: 77.5946},
		{Facility: models.Facility{ID: "f-clinic", Name: "Corner Clinic", Kind: models.FacilityClinic}, Latitude: 12.9986, Longitude: 77.5946},
	}
}
