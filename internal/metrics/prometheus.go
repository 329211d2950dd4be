package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Queue metrics
var (
	QueueEnqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_enqueued_total",
			Help: "Total number of campaign requests enqueued",
		},
	)

	QueueDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_dispatch_total",
			Help: "Total number of dispatch attempts by result",
		},
		[]string{"result"}, // sent, failed, locked
	)

	QueueDispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "queue_dispatch_duration_seconds",
			Help:    "Duration of a single queued-request dispatch",
			Buckets: prometheus.DefBuckets,
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Number of campaign requests currently queued",
		},
	)
)

// Remote campaign-service metrics
var (
	ChimpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chimp_requests_total",
			Help: "Total number of remote campaign-service API calls",
		},
		[]string{"operation", "status"}, // operation: template, list, create, fetch, send
	)
)

// API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	APIAuthFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_auth_failures_total",
			Help: "Total number of API authentication failures",
		},
	)
)
