// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package models

import "time"

// Counters are the monotonically increasing engine totals.
type Counters struct {
	EventsProcessed   int64 `json:"events_processed"`
	ThreatsDetected   int64 `json:"threats_detected"`
	AnomaliesDetected int64 `json:"anomalies_detected"`
	IncidentsCreated  int64 `json:"incidents_created"`
	AlertsSent        int64 `json:"alerts_sent"`
	BlockedRequests   int64 `json:"blocked_requests"`
	InvalidInputs     int64 `json:"invalid_inputs"`
	MemoryCleanups    int64 `json:"memory_cleanups"`
}

// CollectionSizes are the live sizes of every bounded collection.
type CollectionSizes struct {
	Events           int `json:"events"`
	ActiveIncidents  int `json:"active_incidents"`
	IncidentHistory  int `json:"incident_history"`
	Indicators       int `json:"indicators"`
	Profiles         int `json:"profiles"`
	RateLimitBuckets int `json:"rate_limit_buckets"`
}

// Performance summarizes the cost of the fast path and the periodic jobs.
type Performance struct {
	AvgRequestOverheadUs float64       `json:"avg_request_overhead_us"`
	LastAnalyticsRun     time.Duration `json:"last_analytics_run_ns"`
	LastProfilerRun      time.Duration `json:"last_profiler_run_ns"`
	DeepScanQueueDepth   int           `json:"deep_scan_queue_depth"`
	DeepScanDropped      int64         `json:"deep_scan_dropped"`
	DetectorErrors       int64         `json:"detector_errors"`
	AnalyticsErrors      int64         `json:"analytics_errors"`
}

// Stats is the snapshot served by the administration API.
type Stats struct {
	Counters    Counters        `json:"counters"`
	Collections CollectionSizes `json:"collections"`
	Performance Performance     `json:"performance"`
	ThreatScore float64         `json:"threat_score"`
	StartedAt   time.Time       `json:"started_at"`
	Uptime      string          `json:"uptime"`
}
