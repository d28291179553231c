package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeline_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifeline_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// Orchestrator metrics
	incidentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeline_incident_transitions_total",
			Help: "Total number of legal incident status transitions",
		},
		[]string{"from_status", "to_status"},
	)

	illegalTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeline_incident_illegal_transitions_total",
			Help: "Rejected incident transitions",
		},
		[]string{"from_status", "to_status"},
	)

	notificationTargets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeline_notification_targets_total",
			Help: "Notification sends per target class and result",
		},
		[]string{"target", "result"},
	)

	fanoutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifeline_notification_fanout_duration_seconds",
			Help:    "Duration of one target class fan-out",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"target"},
	)

	locationResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeline_location_acquisitions_total",
			Help: "Location acquisition attempts by result",
		},
		[]string{"result"},
	)

	speechRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeline_speech_requests_total",
			Help: "Speech requests issued by kind and language",
		},
		[]string{"kind", "language"},
	)

	wizardCancellations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeline_wizard_cancellations_total",
			Help: "Wizard cancellations by stage and whether confirmation was needed",
		},
		[]string{"stage", "confirmed"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lifeline_active_sessions",
			Help: "Number of live emergency sessions",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request counts and durations by route template
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// --- Business metric helpers ---

func RecordTransition(from, to string) {
	incidentTransitions.WithLabelValues(from, to).Inc()
}

func RecordIllegalTransition(from, to string) {
	illegalTransitions.WithLabelValues(from, to).Inc()
}

// RecordNotification records one target send
func RecordNotification(target string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	notificationTargets.WithLabelValues(target, result).Inc()
}

func RecordFanout(target string, duration time.Duration) {
	fanoutDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordLocation records "acquired", "denied", "timeout" or "error"
func RecordLocation(result string) {
	locationResults.WithLabelValues(result).Inc()
}

func RecordSpeech(kind, language string) {
	speechRequests.WithLabelValues(kind, language).Inc()
}

func RecordCancellation(stage string, confirmed bool) {
	wizardCancellations.WithLabelValues(stage, strconv.FormatBool(confirmed)).Inc()
}

func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}
