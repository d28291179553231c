package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"lifeline/metrics"
	"lifeline/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const maxNotifiedFacilities = 3

// ProgressFunc receives the running tally each time one target class completes
type ProgressFunc func(target models.TargetClass, tally models.NotificationTally)

type NotificationOptions struct {
	FanoutTimeout       time.Duration
	FacilityConcurrency int
}

type NotificationService struct {
	catalog       CategoryCatalog
	facilities    FacilityLookup
	contacts      ContactDirectory
	channels      NotificationChannels
	fanoutTimeout time.Duration
	concurrency   int
	now           func() time.Time
}

func NewNotificationService(
	catalog CategoryCatalog,
	facilities FacilityLookup,
	contacts ContactDirectory,
	channels NotificationChannels,
	opts NotificationOptions,
) *NotificationService {
	if opts.FanoutTimeout <= 0 {
		opts.FanoutTimeout = 20 * time.Second
	}
	if opts.FacilityConcurrency <= 0 {
		opts.FacilityConcurrency = maxNotifiedFacilities
	}
	return &NotificationService{
		catalog:       catalog,
		facilities:    facilities,
		contacts:      contacts,
		channels:      channels,
		fanoutTimeout: opts.FanoutTimeout,
		concurrency:   opts.FacilityConcurrency,
		now:           time.Now,
	}
}

// alertContext is what every payload of one fan-out shares
type alertContext struct {
	incidentID    string
	categoryID    models.CategoryID
	categoryTitle string
	targetKind    models.FacilityKind
	urgency       models.Urgency
	location      *models.EmergencyLocation
}

// classResult is one class's fan-out. lookupFailed marks a backend error
// before any target could be listed, which is a failure, not an empty class.
type classResult struct {
	attempted    int
	names        []string
	lookupFailed bool
}

func (r classResult) outcome() models.NotifyOutcome {
	if r.lookupFailed {
		return models.OutcomeFailed
	}
	return models.OutcomeFromCount(r.attempted, len(r.names))
}

// =================== SINGLE CLASS OPERATIONS ===================

// NotifyEmergencyServices makes the hotline call. Failure is reported, never raised.
func (ns *NotificationService) NotifyEmergencyServices(ctx context.Context, categoryTitle string, location *models.EmergencyLocation, metadata map[string]string) bool {
	ctx, cancel := context.WithTimeout(ctx, ns.fanoutTimeout)
	defer cancel()

	ac := alertContext{categoryTitle: categoryTitle, urgency: models.UrgencyHigh, location: location}
	return ns.notifyServices(ctx, ac, metadata).outcome() == models.OutcomeSucceeded
}

// NotifyNearbyFacilities notifies at most three ranked facilities and returns the
// names that succeeded, nearest first. A nil location returns an empty list
// without calling the lookup or any channel.
func (ns *NotificationService) NotifyNearbyFacilities(ctx context.Context, categoryID models.CategoryID, location *models.EmergencyLocation, urgency models.Urgency) []string {
	if location == nil {
		return []string{}
	}

	ctx, cancel := context.WithTimeout(ctx, ns.fanoutTimeout)
	defer cancel()

	ac := alertContext{
		categoryID:    categoryID,
		categoryTitle: string(categoryID),
		targetKind:    models.FacilityHospital,
		urgency:       urgency,
		location:      location,
	}
	if ns.catalog != nil {
		if category, ok := ns.catalog.Get(categoryID); ok {
			ac.categoryTitle = category.Title
			ac.targetKind = category.TargetFacility
		}
	}
	return ns.notifyFacilities(ctx, ac).names
}

// NotifyFamilyContacts attempts every registered contact and returns the ids that succeeded, in directory order
func (ns *NotificationService) NotifyFamilyContacts(ctx context.Context, categoryTitle string, location *models.EmergencyLocation, customMessage string) []string {
	ctx, cancel := context.WithTimeout(ctx, ns.fanoutTimeout)
	defer cancel()

	ac := alertContext{categoryTitle: categoryTitle, urgency: models.UrgencyHigh, location: location}
	return ns.notifyFamily(ctx, ac, customMessage).names
}

// =================== STRUCTURED FAN-OUT ===================

// Dispatch runs one goroutine per requested target class, each bounded by the
// fan-out timeout. A class's failure never cancels its siblings. Classes that
// were not requested are reported as not_attempted.
func (ns *NotificationService) Dispatch(ctx context.Context, req models.DispatchRequest, onProgress ProgressFunc) models.DispatchResult {
	start := ns.now()

	ac := alertContext{
		incidentID:    req.IncidentID,
		categoryID:    req.Category.ID,
		categoryTitle: req.Category.Title,
		targetKind:    req.Category.TargetFacility,
		urgency:       req.Urgency,
		location:      req.Location,
	}

	var (
		mu    sync.Mutex
		g     errgroup.Group
		tally = models.NewNotificationTally()
	)

	if !req.Services {
		tally.ServicesOutcome = models.OutcomeNotAttempted
	}
	if !req.Facilities {
		tally.FacilitiesOutcome = models.OutcomeNotAttempted
	}
	if !req.Family {
		tally.FamilyOutcome = models.OutcomeNotAttempted
	}

	run := func(target models.TargetClass, fn func(ctx context.Context) classResult) {
		g.Go(func() error {
			classStart := ns.now()
			cctx, cancel := context.WithTimeout(ctx, ns.fanoutTimeout)
			defer cancel()

			result := fn(cctx)
			metrics.RecordFanout(string(target), ns.now().Sub(classStart))

			mu.Lock()
			defer mu.Unlock()

			switch target {
			case models.TargetEmergencyServices:
				tally.ServicesOutcome = result.outcome()
			case models.TargetFacilities:
				tally.FacilitiesOutcome = result.outcome()
				tally.FacilityNames = append([]string{}, result.names...)
			case models.TargetFamily:
				tally.FamilyOutcome = result.outcome()
				tally.ContactIDs = append([]string{}, result.names...)
			}
			tally.UpdatedAt = ns.now()

			if onProgress != nil {
				onProgress(target, tally.Clone())
			}
			return nil
		})
	}

	if req.Services {
		run(models.TargetEmergencyServices, func(ctx context.Context) classResult {
			return ns.notifyServices(ctx, ac, req.ServiceMetadata)
		})
	}
	if req.Facilities {
		run(models.TargetFacilities, func(ctx context.Context) classResult {
			if ac.location == nil {
				return classResult{}
			}
			return ns.notifyFacilities(ctx, ac)
		})
	}
	if req.Family {
		run(models.TargetFamily, func(ctx context.Context) classResult {
			return ns.notifyFamily(ctx, ac, req.CustomMessage)
		})
	}

	_ = g.Wait()

	result := models.DispatchResult{
		ServicesOutcome:   tally.ServicesOutcome,
		FacilitiesOutcome: tally.FacilitiesOutcome,
		FamilyOutcome:     tally.FamilyOutcome,
		FacilityNames:     tally.FacilityNames,
		ContactIDs:        tally.ContactIDs,
		Duration:          ns.now().Sub(start),
	}

	logrus.WithFields(logrus.Fields{
		"incident_id": req.IncidentID,
		"services":    result.ServicesOutcome,
		"facilities":  result.FacilitiesOutcome,
		"family":      result.FamilyOutcome,
		"duration":    result.Duration,
	}).Info("Emergency notification fan-out completed")

	return result
}

// =================== PER CLASS FAN-OUTS ===================

func (ns *NotificationService) notifyServices(ctx context.Context, ac alertContext, metadata map[string]string) classResult {
	payload := ns.basePayload(ac, models.TargetEmergencyServices)
	payload.RecipientName = "Emergency Hotline"
	payload.Metadata = metadata

	ok := ns.send(ctx, ns.channels.Hotline, payload)
	if !ok {
		return classResult{attempted: 1}
	}
	return classResult{attempted: 1, names: []string{payload.RecipientName}}
}

func (ns *NotificationService) notifyFacilities(ctx context.Context, ac alertContext) classResult {
	if ac.location == nil || ns.facilities == nil {
		return classResult{}
	}

	candidates, err := ns.facilities.FindNearby(ctx, *ac.location, ac.targetKind)
	if err != nil {
		logrus.WithField("incident_id", ac.incidentID).Warnf("Facility lookup failed: %v", err)
		return classResult{lookupFailed: true}
	}

	ranked := rankFacilities(candidates, ac.categoryID, ac.targetKind, ac.urgency)
	if len(ranked) == 0 {
		return classResult{}
	}

	payloads := make([]models.NotificationPayload, len(ranked))
	for i, facility := range ranked {
		p := ns.basePayload(ac, models.TargetFacilities)
		p.RecipientID = facility.ID
		p.RecipientName = facility.Name
		p.Body += fmt.Sprintf("\nDistance: %.1f km", facility.DistanceKm)
		payloads[i] = p
	}

	ok := ns.sendAll(ctx, ns.channels.Facility, payloads)

	names := []string{}
	for i, facility := range ranked {
		if ok[i] {
			names = append(names, facility.Name)
		}
	}
	return classResult{attempted: len(ranked), names: names}
}

func (ns *NotificationService) notifyFamily(ctx context.Context, ac alertContext, customMessage string) classResult {
	if ns.contacts == nil {
		return classResult{}
	}

	contacts, err := ns.contacts.ListContacts(ctx)
	if err != nil {
		logrus.WithField("incident_id", ac.incidentID).Warnf("Failed to list family contacts: %v", err)
		return classResult{lookupFailed: true}
	}
	if len(contacts) == 0 {
		return classResult{}
	}

	payloads := make([]models.NotificationPayload, len(contacts))
	for i, contact := range contacts {
		p := ns.basePayload(ac, models.TargetFamily)
		p.RecipientID = contact.ContactID()
		p.RecipientName = contact.Name
		p.Phone = contact.Phone
		p.Email = contact.Email
		p.DeviceToken = contact.DeviceToken
		if customMessage != "" {
			p.Body = customMessage + "\n" + p.Body
		}
		payloads[i] = p
	}

	ok := ns.sendAll(ctx, ns.channels.Contact, payloads)

	ids := []string{}
	for i, contact := range contacts {
		if ok[i] {
			ids = append(ids, contact.ContactID())
		}
	}
	return classResult{attempted: len(contacts), names: ids}
}

// sendAll sends every payload independently with bounded concurrency and
// reports per-payload success in input order
func (ns *NotificationService) sendAll(ctx context.Context, channel NotificationChannel, payloads []models.NotificationPayload) []bool {
	ok := make([]bool, len(payloads))

	var g errgroup.Group
	g.SetLimit(ns.concurrency)
	for i := range payloads {
		i := i
		g.Go(func() error {
			ok[i] = ns.send(ctx, channel, payloads[i])
			return nil
		})
	}
	_ = g.Wait()

	return ok
}

func (ns *NotificationService) send(ctx context.Context, channel NotificationChannel, payload models.NotificationPayload) bool {
	var err error
	if channel == nil {
		err = ErrChannelNotConfigured
	} else {
		err = channel.Send(ctx, payload)
	}

	metrics.RecordNotification(string(payload.Target), err == nil)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"incident_id": payload.IncidentID,
			"target":      payload.Target,
			"recipient":   payload.RecipientName,
		}).Warnf("Emergency notification failed: %v", err)
		return false
	}
	return true
}

func (ns *NotificationService) basePayload(ac alertContext, target models.TargetClass) models.NotificationPayload {
	payload := models.NotificationPayload{
		IncidentID: ac.incidentID,
		Target:     target,
		Title:      fmt.Sprintf("EMERGENCY: %s", ac.categoryTitle),
		Body:       alertBody(ac),
		CategoryID: ac.categoryID,
		Urgency:    ac.urgency,
		SentAt:     ns.now(),
	}
	if ac.location != nil {
		loc := *ac.location
		payload.Location = &loc
	}
	return payload
}

func alertBody(ac alertContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A %s emergency has been reported.", ac.categoryTitle)
	if ac.location == nil || ac.location.IsPlaceholder() {
		b.WriteString("\nLocation: not available")
	} else {
		fmt.Fprintf(&b, "\nLocation: %s\nMap: https://maps.google.com/?q=%.6f,%.6f",
			ac.location.Address, ac.location.Latitude, ac.location.Longitude)
	}
	return b.String()
}

// =================== RANKING ===================

// excludesClinics reports whether clinic-class facilities are unsuitable
func excludesClinics(categoryID models.CategoryID, urgency models.Urgency) bool {
	if urgency == models.UrgencyCritical {
		return true
	}
	switch categoryID {
	case models.CategoryHeartAttack, models.CategoryStroke, models.CategorySevereTrauma:
		return true
	default:
		return false
	}
}

// rankFacilities filters the candidates, sorts by distance (ties: the target
// kind first, then name) and keeps the closest three
func rankFacilities(candidates []models.Facility, categoryID models.CategoryID, target models.FacilityKind, urgency models.Urgency) []models.Facility {
	noClinics := excludesClinics(categoryID, urgency)

	ranked := make([]models.Facility, 0, len(candidates))
	for _, f := range candidates {
		if !f.Kind.Valid() {
			continue
		}
		if noClinics && !f.Kind.IsHospitalClass() {
			continue
		}
		ranked = append(ranked, f)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		if (a.Kind == target) != (b.Kind == target) {
			return a.Kind == target
		}
		return a.Name < b.Name
	})

	if len(ranked) > maxNotifiedFacilities {
		ranked = ranked[:maxNotifiedFacilities]
	}
	return ranked
}
