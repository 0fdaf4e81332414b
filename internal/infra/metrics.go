// README: Prometheus collectors shared by the booking engine, notifier and HTTP layer.
package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localpro_booking_transitions_total",
		Help: "Booking status transition attempts by edge and outcome.",
	}, []string{"from", "to", "outcome"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localpro_notifications_total",
		Help: "Notification dispatch results.",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "localpro_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
