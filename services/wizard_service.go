package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"lifeline/metrics"
	"lifeline/models"
	"lifeline/utils"

	"github.com/sirupsen/logrus"
)

const defaultHotlineGrace = 3 * time.Second

// ErrCancelConfirmationRequired is returned by Cancel when the flow is active
var ErrCancelConfirmationRequired = errors.New("cancel requires confirmation")

// WizardDeps are the collaborators a wizard drives
type WizardDeps struct {
	Catalog       CategoryCatalog
	Incidents     *IncidentService
	Location      *LocationService
	Notifications *NotificationService
	Audio         *AudioService
	Tracking      *TrackingService
}

// WizardOptions carry per-session settings and the presentation hooks
type WizardOptions struct {
	SessionID    string
	Language     models.Language
	AudioEnabled bool
	// HotlineGrace bounds how long the hotline call waits for a location fix
	HotlineGrace time.Duration

	// OnChange receives a snapshot after every background update
	OnChange func(models.WizardSnapshot)
	// OnProgress receives the merged tally as each fan-out class completes
	OnProgress ProgressFunc
	// OnReport archives the post-emergency report
	OnReport func(ctx context.Context, report *models.PostEmergencySupport)
}

// Wizard sequences one emergency session. One mutex guards every writer;
// background results carry the generation they were started in and are
// dropped when the session has been reset since.
type Wizard struct {
	deps WizardDeps
	opts WizardOptions

	mu           sync.Mutex
	state        models.WizardState
	incident     *models.EmergencyIncident
	tracker      *models.EmergencyTracker
	report       *models.PostEmergencySupport
	tally        models.NotificationTally
	generation   uint64
	locationDone chan struct{}
	lastActivity time.Time

	pending sync.WaitGroup
}

func NewWizard(deps WizardDeps, opts WizardOptions) *Wizard {
	opts.Language = opts.Language.Normalize()
	if opts.HotlineGrace <= 0 {
		opts.HotlineGrace = defaultHotlineGrace
	}

	w := &Wizard{
		deps: deps,
		opts: opts,
	}
	w.resetLocked()
	return w
}

// resetLocked restores the initial state. Caller holds mu (or owns w exclusively).
func (w *Wizard) resetLocked() {
	w.state = models.WizardState{
		Stage:        models.StageTypeSelection,
		AudioEnabled: w.opts.AudioEnabled,
		Language:     w.opts.Language,
	}
	w.incident = nil
	w.tracker = nil
	w.report = nil
	w.tally = models.NewNotificationTally()
	w.locationDone = nil
	w.generation++
	w.lastActivity = time.Now()
}

func (w *Wizard) SessionID() string {
	return w.opts.SessionID
}

func (w *Wizard) LastActivity() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActivity
}

// Snapshot returns a deep copy of the wizard's state
func (w *Wizard) Snapshot() models.WizardSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Wizard) snapshotLocked() models.WizardSnapshot {
	state := w.state
	if w.state.Category != nil {
		category := *w.state.Category
		state.Category = &category
	}

	var report *models.PostEmergencySupport
	if w.report != nil {
		r := *w.report
		report = &r
	}

	return models.WizardSnapshot{
		SessionID:     w.opts.SessionID,
		State:         state,
		Incident:      w.incident.Clone(),
		Tracker:       w.tracker.Clone(),
		Report:        report,
		Notifications: w.tally.Clone(),
		TakenAt:       time.Now(),
	}
}

// touchLocked records activity for the idle reaper
func (w *Wizard) touchLocked() {
	w.lastActivity = time.Now()
}

// =================== ENTRY POINTS ===================

// SelectCategory chooses the emergency on the type selection screen
func (w *Wizard) SelectCategory(id models.CategoryID) (models.WizardSnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	if w.state.Stage != models.StageTypeSelection {
		return w.snapshotLocked(), utils.NewStagePreconditionError("category can only be chosen on the type selection screen")
	}
	if w.incident != nil {
		return w.snapshotLocked(), utils.NewConflictError(utils.ErrCodeIncidentAlreadyActive, "an incident is already active; cancel it to choose another category")
	}

	category, ok := w.deps.Catalog.Get(id)
	if !ok {
		return w.snapshotLocked(), utils.NewCategoryNotFoundError(string(id))
	}

	w.state.Category = &category
	w.state.CancelPending = false
	return w.snapshotLocked(), nil
}

// Advance moves to the next stage when its inputs exist
func (w *Wizard) Advance(ctx context.Context) (models.WizardSnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	w.state.CancelPending = false

	var err error
	switch w.state.Stage {
	case models.StageTypeSelection:
		err = w.enterFirstAidLocked(ctx)
	case models.StageFirstAid:
		if w.incident == nil {
			err = utils.NewStagePreconditionError("no active incident")
			break
		}
		w.state.Stage = models.StageEmergencyActions
	case models.StageEmergencyActions:
		err = w.enterTrackingLocked(ctx)
	case models.StageTracking:
		err = w.enterPostEmergencyLocked(ctx)
	case models.StagePostEmergency:
		err = utils.NewStagePreconditionError("the emergency flow is complete")
	default:
		err = utils.NewStagePreconditionError(fmt.Sprintf("unknown stage %q", w.state.Stage))
	}

	return w.snapshotLocked(), err
}

// Back is a pure stage rollback. It never undoes incident transitions or sent notifications.
func (w *Wizard) Back() models.WizardSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	w.state.CancelPending = false

	if prev, ok := w.state.Stage.Previous(); ok {
		w.state.Stage = prev
	}
	return w.snapshotLocked()
}

// Cancel resets immediately when nothing is under way. Otherwise it marks the
// cancel as pending and returns ErrCancelConfirmationRequired.
func (w *Wizard) Cancel() (models.WizardSnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	if !w.activeLocked() {
		metrics.RecordCancellation(string(w.state.Stage), false)
		w.resetLocked()
		return w.snapshotLocked(), nil
	}

	w.state.CancelPending = true
	return w.snapshotLocked(), utils.ServiceError{
		Code:       utils.ErrCodeCancelConfirmation,
		Message:    "Cancelling an active emergency needs confirmation",
		StatusCode: http.StatusAccepted,
		Cause:      ErrCancelConfirmationRequired,
	}
}

// activeLocked reports whether cancelling could abandon a life-safety flow
func (w *Wizard) activeLocked() bool {
	if w.state.Stage != models.StageTypeSelection {
		return true
	}
	return w.incident != nil && w.incident.Status != models.IncidentStatusInitiated
}

// ConfirmCancel resets the wizard. Notifications already sent stay sent; late
// results of in-flight sends are dropped.
func (w *Wizard) ConfirmCancel() (models.WizardSnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	if !w.state.CancelPending {
		return w.snapshotLocked(), utils.NewConflictError(utils.ErrCodeNoPendingCancel, "no cancellation is pending")
	}

	stage := w.state.Stage
	incidentID := ""
	if w.incident != nil {
		incidentID = w.incident.ID
	}

	if w.deps.Location != nil {
		w.deps.Location.StopTracking()
	}
	w.resetLocked()
	metrics.RecordCancellation(string(stage), true)

	logrus.WithFields(logrus.Fields{
		"session_id":  w.opts.SessionID,
		"incident_id": incidentID,
		"stage":       stage,
	}).Warn("Emergency session cancelled by user")

	return w.snapshotLocked(), nil
}

// DismissCancel keeps the flow going
func (w *Wizard) DismissCancel() models.WizardSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	w.state.CancelPending = false
	return w.snapshotLocked()
}

// StepAmbulance advances the tracker by one sub-status
func (w *Wizard) StepAmbulance() (models.WizardSnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	if w.tracker == nil {
		return w.snapshotLocked(), utils.NewStagePreconditionError("no ambulance has been dispatched")
	}

	stepped, err := w.deps.Tracking.Step(w.tracker)
	if err != nil {
		if errors.Is(err, ErrTrackerComplete) {
			return w.snapshotLocked(), utils.NewServiceErrorWithCause(utils.ErrCodeTrackerComplete, "The ambulance is already transporting the patient", http.StatusConflict, err)
		}
		return w.snapshotLocked(), utils.NewServiceErrorWithCause(utils.ErrCodeInternal, "Failed to update tracker", http.StatusInternalServerError, err)
	}
	w.tracker = stepped
	return w.snapshotLocked(), nil
}

func (w *Wizard) SetAudioEnabled(enabled bool) models.WizardSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	w.state.AudioEnabled = enabled
	return w.snapshotLocked()
}

// SetLanguage fails closed: unsupported values select the default language
func (w *Wizard) SetLanguage(lang models.Language) models.WizardSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()

	w.state.Language = lang.Normalize()
	return w.snapshotLocked()
}

// AwaitDispatch blocks until every background task started so far has finished or ctx ends
func (w *Wizard) AwaitDispatch(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops background location tracking. Pending sends finish on their own.
func (w *Wizard) Close() {
	if w.deps.Location != nil {
		w.deps.Location.StopTracking()
	}
}

// =================== STAGE ENTRY ===================

func (w *Wizard) enterFirstAidLocked(ctx context.Context) error {
	if w.state.Category == nil {
		return utils.NewStagePreconditionError("choose an emergency category first")
	}

	if w.incident == nil {
		incident, err := w.deps.Incidents.Create(*w.state.Category, nil)
		if err != nil {
			return utils.NewServiceErrorWithCause(utils.ErrCodeInternal, "Failed to start incident", http.StatusInternalServerError, err)
		}
		w.incident = incident
	}

	if w.incident.Status == models.IncidentStatusInitiated {
		if err := w.transitionLocked(models.IncidentStatusFirstAidShown); err != nil {
			return err
		}
		w.onFirstAidShownLocked(ctx)
	}

	w.state.Stage = models.StageFirstAid
	return nil
}

func (w *Wizard) enterTrackingLocked(ctx context.Context) error {
	if w.incident == nil {
		return utils.NewStagePreconditionError("no active incident")
	}

	if w.incident.Status == models.IncidentStatusFirstAidShown {
		if err := w.transitionLocked(models.IncidentStatusAmbulanceCalled); err != nil {
			return err
		}
		w.onAmbulanceCalledLocked(ctx)
	}

	if w.tracker == nil {
		return utils.NewStagePreconditionError("no ambulance tracker is available")
	}

	w.state.Stage = models.StageTracking
	return nil
}

func (w *Wizard) enterPostEmergencyLocked(ctx context.Context) error {
	if w.tracker == nil || w.tracker.AmbulanceStatus != models.AmbulanceTransporting {
		return utils.NewStagePreconditionError("the ambulance has not started transporting the patient")
	}

	for _, status := range []models.IncidentStatus{
		models.IncidentStatusInTransit,
		models.IncidentStatusAtHospital,
		models.IncidentStatusResolved,
	} {
		if w.incident.Status.Ordinal() >= status.Ordinal() {
			continue
		}
		if err := w.transitionLocked(status); err != nil {
			return err
		}
	}
	w.tracker.Incident = *w.incident.Clone()

	if w.report == nil {
		actions := w.deps.Incidents.SummarizeActions(w.incident, w.tracker, w.tally)
		w.report = w.deps.Incidents.BuildPostEmergencySupport(w.incident, w.tracker, actions)
		if w.deps.Location != nil {
			w.deps.Location.StopTracking()
		}
		w.archiveReportLocked(ctx)
	}

	w.state.Stage = models.StagePostEmergency
	return nil
}

// transitionLocked advances the incident one legal step
func (w *Wizard) transitionLocked(target models.IncidentStatus) error {
	next, err := w.deps.Incidents.Advance(w.incident, target)
	if err != nil {
		var illegal *utils.IllegalTransitionError
		if errors.As(err, &illegal) {
			return illegal.AsServiceError()
		}
		return utils.NewServiceErrorWithCause(utils.ErrCodeInternal, "Failed to advance incident", http.StatusInternalServerError, err)
	}
	w.incident = next
	return nil
}

// =================== SIDE EFFECTS ===================

// speaksLocked reports whether guidance audio should be queued at all
func (w *Wizard) speaksLocked() bool {
	return w.state.AudioEnabled && w.deps.Audio != nil && w.deps.Audio.Available()
}

// onFirstAidShownLocked starts location acquisition and the hotline call in
// the background, and queues the first-aid audio. The hotline carries the fix
// if one arrives within the grace period and goes out without it otherwise.
// The user is never blocked.
func (w *Wizard) onFirstAidShownLocked(ctx context.Context) {
	gen := w.generation
	bg := context.WithoutCancel(ctx)
	incident := w.incident.Clone()
	grace := w.opts.HotlineGrace
	done := make(chan struct{})
	w.locationDone = done
	located := make(chan *models.EmergencyLocation, 1)

	w.pending.Add(2)
	go func() {
		defer w.pending.Done()

		var loc *models.EmergencyLocation
		if w.deps.Location != nil {
			loc = w.deps.Location.GetCurrentLocation(bg)
		}
		w.applyLocation(gen, loc)
		close(done)
		located <- loc
	}()

	go func() {
		defer w.pending.Done()

		var loc *models.EmergencyLocation
		timer := time.NewTimer(grace)
		select {
		case loc = <-located:
		case <-timer.C:
			logrus.WithField("session_id", w.opts.SessionID).Info("No location fix yet, calling the hotline without it")
		}
		timer.Stop()

		w.deps.Notifications.Dispatch(bg, models.DispatchRequest{
			IncidentID: incident.ID,
			Category:   incident.Category,
			Urgency:    w.deps.Incidents.DeriveUrgencyForNotification(incident.Category.ID),
			Location:   loc,
			Services:   true,
			ServiceMetadata: map[string]string{
				"incidentId": incident.ID,
				"categoryId": string(incident.Category.ID),
				"located":    strconv.FormatBool(loc != nil),
			},
		}, w.progressHandler(gen))
	}()

	if w.speaksLocked() {
		steps := incident.Category.FirstAidSteps
		lang := w.state.Language
		w.pending.Add(1)
		go func() {
			defer w.pending.Done()
			w.deps.Audio.PlayFirstAidSteps(bg, steps, lang)
		}()
	}
}

// onAmbulanceCalledLocked creates the tracker and starts the facility and
// family fan-outs once the location attempt has settled
func (w *Wizard) onAmbulanceCalledLocked(ctx context.Context) {
	gen := w.generation
	bg := context.WithoutCancel(ctx)
	incident := w.incident.Clone()
	locationDone := w.locationDone

	w.tracker = w.deps.Tracking.Start(w.incident, w.tally)

	w.pending.Add(1)
	go func() {
		defer w.pending.Done()

		if locationDone != nil {
			<-locationDone
		}
		loc, ok := w.currentLocation(gen)
		if !ok {
			return
		}

		w.deps.Notifications.Dispatch(bg, models.DispatchRequest{
			IncidentID: incident.ID,
			Category:   incident.Category,
			Urgency:    w.deps.Incidents.DeriveUrgencyForNotification(incident.Category.ID),
			Location:   loc,
			Facilities: true,
			Family:     true,
		}, w.progressHandler(gen))
	}()

	if w.speaksLocked() {
		w.deps.Audio.PlayEmergencyAlert(bg, incident.Category.Title, w.state.Language)
	}

	if w.deps.Location != nil {
		w.deps.Location.StartTracking(func(loc models.EmergencyLocation) {
			w.applyLocation(gen, &loc)
		})
	}
}

func (w *Wizard) archiveReportLocked(ctx context.Context) {
	if w.opts.OnReport == nil {
		return
	}
	report := *w.report
	bg := context.WithoutCancel(ctx)

	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		w.opts.OnReport(bg, &report)
	}()
}

// =================== BACKGROUND RESULTS ===================

// applyLocation records a fresh fix as a new location value
func (w *Wizard) applyLocation(gen uint64, loc *models.EmergencyLocation) {
	if loc == nil {
		return
	}

	w.mu.Lock()
	if gen != w.generation || w.incident == nil {
		w.mu.Unlock()
		return
	}

	updated := w.incident.Clone()
	updated.Location = *loc
	w.incident = updated
	if w.tracker != nil {
		w.tracker.Incident.Location = *loc
	}
	snapshot := w.snapshotLocked()
	w.mu.Unlock()

	w.notifyChange(snapshot)
}

// currentLocation returns the incident's location, nil for the placeholder,
// and false when the session has moved on
func (w *Wizard) currentLocation(gen uint64) (*models.EmergencyLocation, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.generation || w.incident == nil {
		return nil, false
	}
	if w.incident.Location.IsPlaceholder() {
		return nil, true
	}
	loc := w.incident.Clone().Location
	return &loc, true
}

func (w *Wizard) progressHandler(gen uint64) ProgressFunc {
	return func(target models.TargetClass, tally models.NotificationTally) {
		w.mu.Lock()
		if gen != w.generation {
			w.mu.Unlock()
			logrus.WithField("session_id", w.opts.SessionID).Debugf("Dropping late %s result after reset", target)
			return
		}

		switch target {
		case models.TargetEmergencyServices:
			w.tally.ServicesOutcome = tally.ServicesOutcome
		case models.TargetFacilities:
			w.tally.FacilitiesOutcome = tally.FacilitiesOutcome
			w.tally.FacilityNames = append([]string{}, tally.FacilityNames...)
		case models.TargetFamily:
			w.tally.FamilyOutcome = tally.FamilyOutcome
			w.tally.ContactIDs = append([]string{}, tally.ContactIDs...)
		}
		w.tally.UpdatedAt = tally.UpdatedAt

		if w.incident != nil && target == models.TargetFamily {
			updated := w.incident.Clone()
			updated.NotifiedContacts = append([]string{}, w.tally.ContactIDs...)
			w.incident = updated
		}
		if w.tracker != nil {
			w.deps.Tracking.ApplyTally(w.tracker, w.tally)
		}

		merged := w.tally.Clone()
		snapshot := w.snapshotLocked()
		w.mu.Unlock()

		if w.opts.OnProgress != nil {
			w.opts.OnProgress(target, merged)
		}
		w.notifyChange(snapshot)
	}
}

func (w *Wizard) notifyChange(snapshot models.WizardSnapshot) {
	if w.opts.OnChange != nil {
		w.opts.OnChange(snapshot)
	}
}
