package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"lifeline/metrics"
	"lifeline/models"
	"lifeline/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionNotifier pushes session events to connected devices
type SessionNotifier interface {
	SpeechSink(sessionID string) SpeechSink
	PublishSnapshot(snapshot models.WizardSnapshot)
	PublishProgress(sessionID, incidentID string, tally models.NotificationTally)
}

// ReportArchiver stores finished post-emergency reports
type ReportArchiver interface {
	SaveReport(ctx context.Context, userID, sessionID string, report *models.PostEmergencySupport) error
}

// ContactDirectoryFactory returns the directory view of one user
type ContactDirectoryFactory func(userID string) ContactDirectory

type SessionConfig struct {
	LocationTimeout     time.Duration
	HotlineGrace        time.Duration
	TrackingInterval    time.Duration
	PositionMaxAge      time.Duration
	FanoutTimeout       time.Duration
	FacilityConcurrency int
	CountdownCadence    time.Duration
	DefaultLanguage     models.Language
	DefaultAudioEnabled bool
}

// Session is one emergency session and its device-fed position source
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	Wizard    *Wizard
	Position  *ReportedPositionSource
	Audio     *AudioService

	countdownMu     sync.Mutex
	countdownCancel context.CancelFunc
}

type SessionService struct {
	catalog    CategoryCatalog
	incidents  *IncidentService
	tracking   *TrackingService
	facilities FacilityLookup
	channels   NotificationChannels
	contacts   ContactDirectoryFactory
	archive    ReportArchiver
	notifier   SessionNotifier
	cfg        SessionConfig

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionService(
	catalog CategoryCatalog,
	facilities FacilityLookup,
	channels NotificationChannels,
	contacts ContactDirectoryFactory,
	archive ReportArchiver,
	notifier SessionNotifier,
	cfg SessionConfig,
) *SessionService {
	cfg.DefaultLanguage = cfg.DefaultLanguage.Normalize()
	return &SessionService{
		catalog:    catalog,
		incidents:  NewIncidentService(),
		tracking:   NewTrackingService(),
		facilities: facilities,
		channels:   channels,
		contacts:   contacts,
		archive:    archive,
		notifier:   notifier,
		cfg:        cfg,
		sessions:   make(map[string]*Session),
	}
}

// Create starts a new session for a user
func (ss *SessionService) Create(userID string) (*Session, models.WizardSnapshot) {
	id := uuid.New().String()
	position := NewReportedPositionSource(ss.cfg.PositionMaxAge)

	var sink SpeechSink
	if ss.notifier != nil {
		sink = ss.notifier.SpeechSink(id)
	}
	audio := NewAudioService(sink, ss.cfg.CountdownCadence)

	var directory ContactDirectory
	if ss.contacts != nil {
		directory = ss.contacts(userID)
	}

	session := &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Now(),
		Position:  position,
		Audio:     audio,
	}

	session.Wizard = NewWizard(WizardDeps{
		Catalog:   ss.catalog,
		Incidents: ss.incidents,
		Location:  NewLocationService(position, ss.cfg.LocationTimeout, ss.cfg.TrackingInterval),
		Notifications: NewNotificationService(ss.catalog, ss.facilities, directory, ss.channels, NotificationOptions{
			FanoutTimeout:       ss.cfg.FanoutTimeout,
			FacilityConcurrency: ss.cfg.FacilityConcurrency,
		}),
		Audio:    audio,
		Tracking: ss.tracking,
	}, WizardOptions{
		SessionID:    id,
		Language:     ss.cfg.DefaultLanguage,
		AudioEnabled: ss.cfg.DefaultAudioEnabled,
		HotlineGrace: ss.cfg.HotlineGrace,
		OnChange:     ss.publishSnapshot,
		OnProgress: func(target models.TargetClass, tally models.NotificationTally) {
			ss.publishProgress(session, tally)
		},
		OnReport: func(ctx context.Context, report *models.PostEmergencySupport) {
			ss.saveReport(ctx, session, report)
		},
	})

	ss.mu.Lock()
	ss.sessions[id] = session
	count := len(ss.sessions)
	ss.mu.Unlock()

	metrics.SetActiveSessions(count)
	logrus.WithFields(logrus.Fields{
		"session_id": id,
		"user_id":    userID,
	}).Info("Emergency session created")

	return session, session.Wizard.Snapshot()
}

// Get returns a session owned by userID
func (ss *SessionService) Get(sessionID, userID string) (*Session, error) {
	ss.mu.RLock()
	session, ok := ss.sessions[sessionID]
	ss.mu.RUnlock()

	if !ok {
		return nil, utils.NewSessionNotFoundError()
	}
	if session.UserID != userID {
		return nil, utils.NewServiceErrorWithStatus(utils.ErrCodeSessionOwnershipMismatch, "Session belongs to another user", http.StatusForbidden)
	}
	return session, nil
}

func (ss *SessionService) Count() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// Reap closes sessions idle for longer than maxIdle and returns how many were removed
func (ss *SessionService) Reap(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	ss.mu.Lock()
	var stale []*Session
	for id, session := range ss.sessions {
		if session.Wizard.LastActivity().Before(cutoff) {
			stale = append(stale, session)
			delete(ss.sessions, id)
		}
	}
	count := len(ss.sessions)
	ss.mu.Unlock()

	for _, session := range stale {
		session.close()
	}

	metrics.SetActiveSessions(count)
	if len(stale) > 0 {
		logrus.Infof("Reaped %d idle emergency sessions", len(stale))
	}
	return len(stale)
}

// Shutdown closes every session
func (ss *SessionService) Shutdown() {
	ss.mu.Lock()
	sessions := ss.sessions
	ss.sessions = make(map[string]*Session)
	ss.mu.Unlock()

	for _, session := range sessions {
		session.close()
	}
	metrics.SetActiveSessions(0)
}

func (ss *SessionService) publishSnapshot(snapshot models.WizardSnapshot) {
	if ss.notifier != nil {
		ss.notifier.PublishSnapshot(snapshot)
	}
}

func (ss *SessionService) publishProgress(session *Session, tally models.NotificationTally) {
	if ss.notifier == nil {
		return
	}
	incidentID := ""
	if snap := session.Wizard.Snapshot(); snap.Incident != nil {
		incidentID = snap.Incident.ID
	}
	ss.notifier.PublishProgress(session.ID, incidentID, tally)
}

func (ss *SessionService) saveReport(ctx context.Context, session *Session, report *models.PostEmergencySupport) {
	if ss.archive == nil {
		return
	}
	if err := ss.archive.SaveReport(ctx, session.UserID, session.ID, report); err != nil {
		logrus.WithFields(logrus.Fields{
			"session_id":  session.ID,
			"incident_id": report.Summary.IncidentID,
		}).Errorf("Failed to archive post-emergency report: %v", err)
	}
}

// ReportLocation records a device answer: a denial, or a fix that implies permission
func (s *Session) ReportLocation(req models.ReportLocationRequest) {
	if !req.PermissionGranted {
		s.Position.ReportPermission(false)
		return
	}
	s.Position.ReportPosition(PositionFix{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Address:   req.Address,
	})
}

// ReportPermission records the device's permission answer without a fix
func (s *Session) ReportPermission(granted bool) {
	s.Position.ReportPermission(granted)
}

// StartCountdown speaks a countdown in the background, replacing any running one
func (s *Session) StartCountdown(n int) {
	ctx, cancel := context.WithCancel(context.Background())

	s.countdownMu.Lock()
	if s.countdownCancel != nil {
		s.countdownCancel()
	}
	s.countdownCancel = cancel
	s.countdownMu.Unlock()

	lang := s.Wizard.Snapshot().State.Language
	go func() {
		defer cancel()
		if err := s.Audio.PlayCountdown(ctx, n, lang); err != nil {
			logrus.WithField("session_id", s.ID).Debugf("Countdown stopped: %v", err)
		}
	}()
}

func (s *Session) close() {
	s.countdownMu.Lock()
	if s.countdownCancel != nil {
		s.countdownCancel()
		s.countdownCancel = nil
	}
	s.countdownMu.Unlock()

	s.Wizard.Close()
}
