// Package metrics exposes Prometheus instrumentation for the attendance
// service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Recognitions counts capture attempts by outcome: matched, no_match,
	// no_face, error.
	Recognitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "recognitions_total",
			Help:      "Capture attempts by outcome",
		},
		[]string{"outcome"},
	)

	// ExtractorDuration observes extractor round-trip latency.
	ExtractorDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "attendance",
			Name:      "extractor_request_seconds",
			Help:      "Face extractor request latency",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SessionsSaved counts saved attendance batches.
	SessionsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "sessions_saved_total",
			Help:      "Attendance batches written",
		},
	)

	// StudentsRegistered counts successful enrollments.
	StudentsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "students_registered_total",
			Help:      "Students enrolled",
		},
	)
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveExtractor records one extractor round trip.
func ObserveExtractor(start time.Time) {
	ExtractorDuration.Observe(time.Since(start).Seconds())
}
