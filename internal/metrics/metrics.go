// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Engine Metrics
	EventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_events_total",
			Help: "Total number of request security events recorded",
		},
	)

	ThreatsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_threats_detected_total",
			Help: "Total number of threat findings by type and severity",
		},
		[]string{"type", "severity"},
	)

	AnomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_anomalies_total",
			Help: "Total number of traffic and behavioral anomalies",
		},
		[]string{"type"},
	)

	ThreatScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_threat_score",
			Help: "Current global traffic threat score (0-100)",
		},
	)

	DetectorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_detector_errors_total",
			Help: "Total number of recovered detector and analytics failures",
		},
		[]string{"component"},
	)

	BodyParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_body_parse_errors_total",
			Help: "Total number of request bodies that could not be decoded for deep scanning",
		},
	)

	// Request Path Metrics
	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_blocked_requests_total",
			Help: "Total number of requests rejected by the recorder",
		},
		[]string{"reason"}, // "rate_limit", "path_traversal", "blocklist"
	)

	InvalidInputs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_invalid_inputs_total",
			Help: "Total number of malformed request inputs",
		},
		[]string{"kind"}, // "method", "ip"
	)

	RequestOverhead = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_request_overhead_seconds",
			Help:    "Time the recorder adds to each request before calling the next handler",
			Buckets: []float64{.00001, .000025, .00005, .0001, .00025, .0005, .001, .0025, .005, .01},
		},
	)

	DeepScanDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_deep_scan_dropped_total",
			Help: "Total number of deep scans dropped because the queue was full",
		},
	)

	DeepScanQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_deep_scan_queue_depth",
			Help: "Current number of requests waiting for a deep scan",
		},
	)

	// Incident Metrics
	IncidentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_incidents_created_total",
			Help: "Total number of incidents created by severity",
		},
		[]string{"severity"},
	)

	IncidentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_incident_transitions_total",
			Help: "Total number of incident status transitions by target status",
		},
		[]string{"to"},
	)

	PlaybookActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_playbook_actions_total",
			Help: "Total number of playbook actions executed",
		},
		[]string{"action", "result"},
	)

	ActiveIncidents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_active_incidents",
			Help: "Current number of active (not closed) incidents",
		},
	)

	// Alert Metrics
	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_sent_total",
			Help: "Total number of alerts emitted by type",
		},
		[]string{"type"},
	)

	AlertSubscriberFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alert_subscriber_failures_total",
			Help: "Total number of alert deliveries that failed or panicked",
		},
		[]string{"subscriber"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Memory Governor Metrics
	MemoryCleanups = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_memory_cleanups_total",
			Help: "Total number of memory governor sweeps",
		},
	)

	Evictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_evictions_total",
			Help: "Total number of entries evicted from bounded collections",
		},
		[]string{"collection"},
	)

	CollectionSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_collection_size",
			Help: "Current number of entries per bounded collection",
		},
		[]string{"collection"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of administration API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of administration API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of requests currently being served",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of administration API rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of connected alert stream clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of alert stream messages sent",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordThreat records a threat finding.
func RecordThreat(threatType, severity string) {
	ThreatsDetected.WithLabelValues(threatType, severity).Inc()
}

// RecordAnomaly records a traffic or behavioral anomaly.
func RecordAnomaly(anomalyType string) {
	AnomaliesTotal.WithLabelValues(anomalyType).Inc()
}

// RecordBlocked records a request rejected before reaching the next handler.
func RecordBlocked(reason string) {
	BlockedRequests.WithLabelValues(reason).Inc()
}

// RecordInvalidInput records a malformed input.
func RecordInvalidInput(kind string) {
	InvalidInputs.WithLabelValues(kind).Inc()
}

// RecordRequestOverhead records the recorder's pre-handler latency.
func RecordRequestOverhead(d time.Duration) {
	RequestOverhead.Observe(d.Seconds())
}

// RecordDetectorError records a recovered failure in a detection component.
func RecordDetectorError(component string) {
	DetectorErrors.WithLabelValues(component).Inc()
}

// RecordIncidentCreated records a new incident.
func RecordIncidentCreated(severity string) {
	IncidentsCreated.WithLabelValues(severity).Inc()
}

// RecordIncidentTransition records a status change.
func RecordIncidentTransition(to string) {
	IncidentTransitions.WithLabelValues(to).Inc()
}

// RecordPlaybookAction records a playbook action outcome.
func RecordPlaybookAction(action string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	PlaybookActions.WithLabelValues(action, result).Inc()
}

// RecordAlert records an emitted alert.
func RecordAlert(alertType string) {
	AlertsSent.WithLabelValues(alertType).Inc()
}

// RecordSubscriberFailure records a failed or panicking alert subscriber.
func RecordSubscriberFailure(subscriber string) {
	AlertSubscriberFailures.WithLabelValues(subscriber).Inc()
}

// RecordEviction records entries evicted from a collection.
func RecordEviction(collection string, n int) {
	if n <= 0 {
		return
	}
	Evictions.WithLabelValues(collection).Add(float64(n))
}

// UpdateCollectionSize records the current size of a collection.
func UpdateCollectionSize(collection string, n int) {
	CollectionSize.WithLabelValues(collection).Set(float64(n))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// CircuitStateValue maps a breaker state name to the gauge encoding.
func CircuitStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
