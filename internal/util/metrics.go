package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_created_total",
		Help: "Total number of payments created",
	})

	PaymentsDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_duplicate_total",
		Help: "Total number of payment creations rejected as duplicates",
	})

	PaymentsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_completed_total",
		Help: "Total number of payments completed successfully",
	})

	PaymentsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Total number of payments that failed at the processor",
	})

	PaymentAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Total number of payment processing attempts",
	})

	PaymentProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_processing_latency_seconds",
		Help:    "Latency of payment processing including the charge call",
		Buckets: prometheus.DefBuckets,
	})

	OrderEventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_events_consumed_total",
		Help: "Total number of order events consumed",
	}, []string{"event"})

	PaymentEventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_events_published_total",
		Help: "Total number of payment events published",
	}, []string{"status"})

	ConsumerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_errors_total",
		Help: "Total number of errors swallowed by the event consumer",
	}, []string{"reason"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
