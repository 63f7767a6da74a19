package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "workconnect",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		},
		[]string{"route", "status"},
	)

	jobTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "workconnect",
			Name:      "job_transitions_total",
			Help:      "Job status transitions.",
		},
		[]string{"from", "to"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "workconnect",
			Name:      "booking_conflicts_total",
			Help:      "Booking requests rejected for slot overlap.",
		},
	)
)

// Register registers the collectors. Safe to call more than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, jobTransitions, bookingConflicts)
	})
}

func IncHTTP(route, status string) {
	httpRequests.WithLabelValues(route, status).Inc()
}

func IncJobTransition(from, to string) {
	jobTransitions.WithLabelValues(from, to).Inc()
}

func IncBookingConflict() {
	bookingConflicts.Inc()
}
