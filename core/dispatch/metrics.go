package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	fanoutLatency    *prometheus.HistogramVec
	driversNotified  *prometheus.CounterVec
	deliveryFailures prometheus.Counter
	emptyCandidates  prometheus.Counter
	casConflicts     prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter, prometheus.Counter) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_fanout_latency_seconds",
			Help:    "Latency of notification submissions per driver",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"forwarded"},
	)
	not := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivers_notified_total",
			Help: "Number of drivers notified of ride requests",
		},
		[]string{"forwarded"},
	)
	fail := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_failures_total",
			Help: "Number of failed notification submissions",
		},
	)
	empty := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_empty_candidates_total",
			Help: "Number of dispatches that found no eligible driver",
		},
	)
	cas := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ride_state_conflicts_total",
			Help: "Number of ride state updates that lost a compare-and-swap race",
		},
	)
	return lat, not, fail, empty, cas
}

func init() {
	fanoutLatency, driversNotified, deliveryFailures, emptyCandidates, casConflicts = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(fanoutLatency, driversNotified, deliveryFailures, emptyCandidates, casConflicts)
}

// ResetMetrics reinitializes metric collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	fanoutLatency, driversNotified, deliveryFailures, emptyCandidates, casConflicts = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
