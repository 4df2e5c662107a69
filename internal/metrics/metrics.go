// Package metrics exposes the Prometheus collectors of the API.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fitpass",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitpass",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fitpass",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	bookingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitpass",
			Subsystem: "bookings",
			Name:      "events_total",
			Help:      "Bookings created, cancelled and checked in.",
		},
		[]string{"event", "kind"},
	)

	geocodingCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitpass",
			Subsystem: "geocoding",
			Name:      "provider_calls_total",
			Help:      "Geocoding provider calls by outcome.",
		},
		[]string{"provider", "outcome"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitpass",
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Payment processor webhook events received.",
		},
		[]string{"type", "result"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitpass",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		bookingEvents,
		geocodingCalls,
		webhookEvents,
		jobRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request count and latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := strings.ToUpper(c.Request.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordBooking counts a booking event ("created", "cancelled", "checked_in")
// of a kind ("class", "direct_visit").
func RecordBooking(event, kind string) {
	bookingEvents.WithLabelValues(event, kind).Inc()
}

// RecordGeocodingCall counts one provider call.
func RecordGeocodingCall(provider, outcome string) {
	geocodingCalls.WithLabelValues(provider, outcome).Inc()
}

// RecordWebhookEvent counts a webhook event by type and processing result.
func RecordWebhookEvent(eventType, result string) {
	if eventType == "" {
		eventType = "unknown"
	}
	webhookEvents.WithLabelValues(eventType, result).Inc()
}

// RecordJobRun counts a scheduler job run.
func RecordJobRun(job string, success bool) {
	jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
}
