// Package metrics exposes Prometheus metrics for the booking service.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "slotbook"

var (
	once sync.Once

	slotsComputed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_computed_total",
			Help:      "Count of day slot computations by mode.",
		},
		[]string{"mode"},
	)

	dayRatings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "day_ratings_total",
			Help:      "Count of computed day ratings by label.",
		},
		[]string{"rating"},
	)

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_created_total",
			Help:      "Count of bookings created by status.",
		},
		[]string{"status"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled by chain compensation.",
		},
	)

	chainFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_chain_failed_total",
			Help:      "Count of failed booking write chains.",
		},
		[]string{"compensated"},
	)

	wizardTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_transitions_total",
			Help:      "Count of wizard step changes by target step and outcome.",
		},
		[]string{"step", "outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of API requests by route.",
		},
		[]string{"route"},
	)

	backendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_seconds",
			Help:      "Latency of business database calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			slotsComputed,
			dayRatings,
			bookingCreated,
			bookingCancelled,
			chainFailed,
			wizardTransitions,
			httpRequests,
			backendLatency,
		)
	})
}

func IncSlotsComputed(mode string) {
	slotsComputed.WithLabelValues(mode).Inc()
}

func IncDayRating(rating string) {
	dayRatings.WithLabelValues(rating).Inc()
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncChainFailed(compensated bool) {
	chainFailed.WithLabelValues(strconv.FormatBool(compensated)).Inc()
}

func IncWizardTransition(step, outcome string) {
	wizardTransitions.WithLabelValues(step, outcome).Inc()
}

func IncHTTP(route string) {
	httpRequests.WithLabelValues(route).Inc()
}

// ObserveBackend records the duration of a backend call in seconds.
func ObserveBackend(op string, seconds float64) {
	backendLatency.WithLabelValues(op).Observe(seconds)
}
