package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"lifeline/models"
	"lifeline/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationService_GetCurrentLocation(t *testing.T) {
	tests := []struct {
		name   string
		source PositionSource
		want   bool
	}{
		{"nil source", nil, false},
		{"denied", &StaticPositionSource{Granted: false}, false},
		{"permission error", &StaticPositionSource{PermissionErr: errors.New("boom")}, false},
		{"no fix", &StaticPositionSource{Granted: true}, false},
		{"position error", &StaticPositionSource{Granted: true, PositionErr: errors.New("gps off")}, false},
		{"invalid fix", &StaticPositionSource{Granted: true, Fix: &PositionFix{Latitude: 120, Longitude: 10}}, false},
		{"fix", &StaticPositionSource{Granted: true, Fix: &PositionFix{Latitude: 12.97, Longitude: 77.59}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ls := NewLocationService(tt.source, time.Second, time.Hour)
			loc := ls.GetCurrentLocation(context.Background())
			assert.Equal(t, tt.want, loc != nil)
		})
	}
}

func TestLocationService_FormatsAddressFromCoordinates(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ls := NewLocationService(&StaticPositionSource{
		Granted: true,
		Fix:     &PositionFix{Latitude: 12.9716, Longitude: 77.5946, Accuracy: utils.Float64Ptr(8)},
	}, time.Second, time.Hour)
	ls.now = func() time.Time { return fixed }

	loc := ls.GetCurrentLocation(context.Background())
	require.NotNil(t, loc)
	assert.Equal(t, "12.971600, 77.594600", loc.Address)
	assert.Equal(t, fixed, loc.CapturedAt)
	require.NotNil(t, loc.Accuracy)
	assert.Equal(t, 8.0, *loc.Accuracy)
	assert.False(t, loc.IsPlaceholder())
}

func TestLocationService_TimesOut(t *testing.T) {
	ls := NewLocationService(&StaticPositionSource{
		Granted: true,
		Fix:     &PositionFix{Latitude: 12.97, Longitude: 77.59},
		Delay:   time.Second,
	}, 20*time.Millisecond, time.Hour)

	start := time.Now()
	assert.Nil(t, ls.GetCurrentLocation(context.Background()))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

// locationResultCount reads the acquisition counter for one result label
func locationResultCount(t *testing.T, result string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "lifeline_location_acquisitions_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestLocationService_ResultLabels(t *testing.T) {
	tests := []struct {
		name   string
		source PositionSource
		result string
	}{
		{"unanswered prompt times out", NewReportedPositionSource(time.Minute), "timeout"},
		{"explicit denial", &StaticPositionSource{Granted: false}, "denied"},
		{"fix acquired", &StaticPositionSource{Granted: true, Fix: &PositionFix{Latitude: 12.97, Longitude: 77.59}}, "acquired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := locationResultCount(t, tt.result)
			ls := NewLocationService(tt.source, 30*time.Millisecond, time.Hour)
			ls.GetCurrentLocation(context.Background())
			assert.Equal(t, before+1, locationResultCount(t, tt.result))
		})
	}
}

func TestLocationService_TrackingDeliversFixes(t *testing.T) {
	ls := NewLocationService(&StaticPositionSource{
		Granted: true,
		Fix:     &PositionFix{Latitude: 12.97, Longitude: 77.59},
	}, time.Second, 10*time.Millisecond)

	fixes := make(chan models.EmergencyLocation, 10)
	ls.StartTracking(func(loc models.EmergencyLocation) {
		select {
		case fixes <- loc:
		default:
		}
	})
	assert.True(t, ls.IsTracking())

	select {
	case loc := <-fixes:
		assert.Equal(t, 12.97, loc.Latitude)
	case <-time.After(time.Second):
		t.Fatal("no fix delivered")
	}

	ls.StopTracking()
	ls.StopTracking()
	assert.False(t, ls.IsTracking())
}

func TestReportedPositionSource_WaitsForDevice(t *testing.T) {
	rs := NewReportedPositionSource(time.Minute)

	go func() {
		time.Sleep(10 * time.Millisecond)
		rs.ReportPosition(PositionFix{Latitude: 12.97, Longitude: 77.59, Address: "Home"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	granted, err := rs.RequestPermission(ctx)
	require.NoError(t, err)
	assert.True(t, granted)

	fix, err := rs.CurrentPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Home", fix.Address)
}

func TestReportedPositionSource_Denial(t *testing.T) {
	rs := NewReportedPositionSource(time.Minute)
	rs.ReportPermission(false)

	granted, err := rs.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.False(t, granted)

	_, err = rs.CurrentPosition(context.Background())
	assert.True(t, errors.Is(err, ErrPermissionDenied))
}

func TestReportedPositionSource_StaleFixWaits(t *testing.T) {
	rs := NewReportedPositionSource(time.Minute)
	rs.ReportPosition(PositionFix{Latitude: 1, Longitude: 1})
	rs.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rs.CurrentPosition(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
