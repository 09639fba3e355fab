package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the pipeline-level metrics
type Metrics struct {
	// Discovery and fetch metrics
	FetchesTotal   *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	DiscoveryTotal *prometheus.CounterVec

	// Subscription metrics
	SubscribeAttempts *prometheus.CounterVec
	SubscribeOutcomes *prometheus.CounterVec

	// Notification metrics
	NotificationsTotal *prometheus.CounterVec
	EntriesTotal       *prometheus.CounterVec
	ActivitiesCreated  prometheus.Counter

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all pipeline metrics
func NewMetrics() *Metrics {
	return &Metrics{
		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedbridge",
				Subsystem: "fetch",
				Name:      "requests_total",
				Help:      "Total outbound HTTP fetches",
			},
			[]string{"kind", "status"}, // kind: page|feed, status: ok|error
		),

		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "feedbridge",
				Subsystem: "fetch",
				Name:      "duration_seconds",
				Help:      "Outbound HTTP fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),

		DiscoveryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedbridge",
				Subsystem: "discovery",
				Name:      "results_total",
				Help:      "Discovery outcomes",
			},
			[]string{"kind", "result"}, // kind: feed|hub, result: found|none
		),

		SubscribeAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedbridge",
				Subsystem: "subscription",
				Name:      "attempts_total",
				Help:      "Subscribe/unsubscribe operations attempted",
			},
			[]string{"operation"}, // subscribe|unsubscribe
		),

		SubscribeOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedbridge",
				Subsystem: "subscription",
				Name:      "outcomes_total",
				Help:      "Subscribe/unsubscribe operation outcomes",
			},
			[]string{"operation", "outcome"}, // outcome: success|abandoned|no_feed|no_hub
		),

		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedbridge",
				Subsystem: "notification",
				Name:      "deliveries_total",
				Help:      "Pushed notifications received",
			},
			[]string{"status"}, // processed|dropped|rejected
		),

		EntriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedbridge",
				Subsystem: "notification",
				Name:      "entries_total",
				Help:      "Notification entries handled",
			},
			[]string{"status"}, // processed|skipped|failed
		),

		ActivitiesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "feedbridge",
				Subsystem: "notification",
				Name:      "activities_created_total",
				Help:      "Activity records created",
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedbridge",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"service", "type"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "feedbridge",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "feedbridge",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordFetch records an outbound fetch with status and duration
func (m *Metrics) RecordFetch(kind string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.FetchesTotal.WithLabelValues(kind, status).Inc()
	m.FetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordDiscovery records a feed or hub discovery outcome
func (m *Metrics) RecordDiscovery(kind string, found bool) {
	result := "none"
	if found {
		result = "found"
	}
	m.DiscoveryTotal.WithLabelValues(kind, result).Inc()
}

// RecordSubscribeAttempt records a subscribe/unsubscribe operation start
func (m *Metrics) RecordSubscribeAttempt(operation string) {
	m.SubscribeAttempts.WithLabelValues(operation).Inc()
}

// RecordSubscribeOutcome records a subscribe/unsubscribe operation outcome
func (m *Metrics) RecordSubscribeOutcome(operation, outcome string) {
	m.SubscribeOutcomes.WithLabelValues(operation, outcome).Inc()
}

// RecordNotification records a delivery outcome
func (m *Metrics) RecordNotification(status string) {
	m.NotificationsTotal.WithLabelValues(status).Inc()
}

// RecordEntry records a per-entry processing outcome
func (m *Metrics) RecordEntry(status string) {
	m.EntriesTotal.WithLabelValues(status).Inc()
}

// RecordActivityCreated increments the created-activity counter
func (m *Metrics) RecordActivityCreated() {
	m.ActivitiesCreated.Inc()
}

// RecordError increments an error counter for a service
func (m *Metrics) RecordError(service, errorType string) {
	m.ErrorsTotal.WithLabelValues(service, errorType).Inc()
}

// RecordNATSStatus updates NATS connection status
func (m *Metrics) RecordNATSStatus(connected bool) {
	if connected {
		m.NATSConnected.Set(1)
	} else {
		m.NATSConnected.Set(0)
	}
}

// RecordNATSReconnect increments reconnection counter
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}
