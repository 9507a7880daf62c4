package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ridematch"

var (
	RequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "ride_requests_created_total", Help: "Ride requests created",
	})
	RequestsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "ride_requests_cancelled_total", Help: "Ride requests cancelled by passengers",
	})
	RidesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "rides_accepted_total", Help: "Requests converted into rides",
	})
	Rejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "ride_rejections_total", Help: "Requests rejected by drivers",
	})
	// RaceLosses counts operations that lost a race on shared state, by operation.
	RaceLosses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "race_losses_total", Help: "Operations failed with conflict or not found on a contended row",
	}, []string{"operation"})
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "ride_status_transitions_total", Help: "Applied ride status transitions",
	}, []string{"from", "to"})
	Settlements = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "settlements_total", Help: "Payments recorded for completed rides",
	})
	SettledAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "settled_amount_total", Help: "Sum of settled payment amounts",
	})
	EventPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "event_publish_errors_total", Help: "Ride events that failed to publish",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
