package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"lifeline/metrics"
	"lifeline/models"
	"lifeline/utils"

	"github.com/sirupsen/logrus"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrNoPositionFix    = errors.New("no position fix available")
)

// PositionFix is a raw reading from a position source
type PositionFix struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64
	Address   string
}

// PositionSource is the device permission and position capability
type PositionSource interface {
	RequestPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context) (PositionFix, error)
}

type LocationService struct {
	source   PositionSource
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time

	mu          sync.Mutex
	trackCancel context.CancelFunc
	denialNoted bool
}

func NewLocationService(source PositionSource, timeout, interval time.Duration) *LocationService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &LocationService{
		source:   source,
		timeout:  timeout,
		interval: interval,
		now:      time.Now,
	}
}

// RequestPermission never fails; denial and source errors both yield false
func (ls *LocationService) RequestPermission(ctx context.Context) bool {
	if ls.source == nil {
		return false
	}

	granted, err := ls.source.RequestPermission(ctx)
	if err != nil || !granted {
		ls.noteDenial(err)
		return false
	}
	return true
}

// noteDenial logs the first denial only; the user is informed once
func (ls *LocationService) noteDenial(err error) {
	ls.mu.Lock()
	first := !ls.denialNoted
	ls.denialNoted = true
	ls.mu.Unlock()

	if !first {
		return
	}
	if err != nil {
		logrus.Warnf("Location permission request failed: %v", err)
		return
	}
	logrus.Info("Location permission denied, continuing without location")
}

// GetCurrentLocation returns nil on denial, timeout or error. Callers proceed without a location.
func (ls *LocationService) GetCurrentLocation(ctx context.Context) *models.EmergencyLocation {
	ctx, cancel := context.WithTimeout(ctx, ls.timeout)
	defer cancel()

	if !ls.RequestPermission(ctx) {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.RecordLocation("timeout")
			logrus.Warnf("Location permission unanswered after %s", ls.timeout)
		} else {
			metrics.RecordLocation("denied")
		}
		return nil
	}

	fix, err := ls.source.CurrentPosition(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.RecordLocation("timeout")
			logrus.Warnf("Location acquisition timed out after %s", ls.timeout)
		} else {
			metrics.RecordLocation("error")
			logrus.Warnf("Location acquisition failed: %v", err)
		}
		return nil
	}

	if !utils.IsValidCoordinate(fix.Latitude, fix.Longitude) {
		metrics.RecordLocation("error")
		logrus.Warnf("Discarding invalid position fix %.6f, %.6f", fix.Latitude, fix.Longitude)
		return nil
	}

	metrics.RecordLocation("acquired")
	return toLocation(fix, ls.now())
}

func toLocation(fix PositionFix, at time.Time) *models.EmergencyLocation {
	address := fix.Address
	if address == "" {
		address = utils.FormatCoordinates(fix.Latitude, fix.Longitude)
	}

	loc := &models.EmergencyLocation{
		Latitude:   fix.Latitude,
		Longitude:  fix.Longitude,
		Address:    address,
		CapturedAt: at,
	}
	if fix.Accuracy != nil {
		loc.Accuracy = utils.Float64Ptr(*fix.Accuracy)
	}
	return loc
}

// StartTracking re-captures the position every interval and hands each fix to
// callback. A second call replaces the first.
func (ls *LocationService) StartTracking(callback func(models.EmergencyLocation)) {
	ctx, cancel := context.WithCancel(context.Background())

	ls.mu.Lock()
	if ls.trackCancel != nil {
		ls.trackCancel()
	}
	ls.trackCancel = cancel
	ls.mu.Unlock()

	go func() {
		ticker := time.NewTicker(ls.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if loc := ls.GetCurrentLocation(ctx); loc != nil && ctx.Err() == nil {
					callback(*loc)
				}
			}
		}
	}()
}

// StopTracking is idempotent and safe without a prior StartTracking. It does not
// wait for an in-flight capture; late fixes are dropped by the ctx check.
func (ls *LocationService) StopTracking() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.trackCancel != nil {
		ls.trackCancel()
		ls.trackCancel = nil
	}
}

func (ls *LocationService) IsTracking() bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.trackCancel != nil
}

// ReportedPositionSource is fed by the device over HTTP or WebSocket. Reads block
// until the device answers or the context ends.
type ReportedPositionSource struct {
	maxAge time.Duration
	now    func() time.Time

	mu         sync.Mutex
	permission *bool
	fix        *PositionFix
	fixAt      time.Time
	changed    chan struct{}
}

func NewReportedPositionSource(maxAge time.Duration) *ReportedPositionSource {
	if maxAge <= 0 {
		maxAge = 30 * time.Second
	}
	return &ReportedPositionSource{
		maxAge:  maxAge,
		now:     time.Now,
		changed: make(chan struct{}),
	}
}

// broadcast wakes every waiter. Caller holds mu.
func (rs *ReportedPositionSource) broadcast() {
	close(rs.changed)
	rs.changed = make(chan struct{})
}

func (rs *ReportedPositionSource) ReportPermission(granted bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.permission = &granted
	rs.broadcast()
}

// ReportPosition records a fix. Reporting a fix implies permission was granted.
func (rs *ReportedPositionSource) ReportPosition(fix PositionFix) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	granted := true
	rs.permission = &granted
	rs.fix = &fix
	rs.fixAt = rs.now()
	rs.broadcast()
}

func (rs *ReportedPositionSource) RequestPermission(ctx context.Context) (bool, error) {
	for {
		rs.mu.Lock()
		if rs.permission != nil {
			granted := *rs.permission
			rs.mu.Unlock()
			return granted, nil
		}
		wait := rs.changed
		rs.mu.Unlock()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-wait:
		}
	}
}

func (rs *ReportedPositionSource) CurrentPosition(ctx context.Context) (PositionFix, error) {
	for {
		rs.mu.Lock()
		if rs.permission != nil && !*rs.permission {
			rs.mu.Unlock()
			return PositionFix{}, ErrPermissionDenied
		}
		if rs.fix != nil && rs.now().Sub(rs.fixAt) <= rs.maxAge {
			fix := *rs.fix
			rs.mu.Unlock()
			return fix, nil
		}
		wait := rs.changed
		rs.mu.Unlock()

		select {
		case <-ctx.Done():
			return PositionFix{}, ctx.Err()
		case <-wait:
		}
	}
}

// StaticPositionSource answers with fixed values, optionally after a delay
type StaticPositionSource struct {
	Granted       bool
	PermissionErr error
	Fix           *PositionFix
	PositionErr   error
	Delay         time.Duration
}

func (ss *StaticPositionSource) RequestPermission(ctx context.Context) (bool, error) {
	return ss.Granted, ss.PermissionErr
}

func (ss *StaticPositionSource) CurrentPosition(ctx context.Context) (PositionFix, error) {
	if ss.Delay > 0 {
		timer := time.NewTimer(ss.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return PositionFix{}, ctx.Err()
		case <-timer.C:
		}
	}
	if ss.PositionErr != nil {
		return PositionFix{}, ss.PositionErr
	}
	if ss.Fix == nil {
		return PositionFix{}, ErrNoPositionFix
	}
	return *ss.Fix, nil
}
