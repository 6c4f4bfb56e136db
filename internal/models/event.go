// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package models

import "time"

// SecurityEvent is one inbound request as recorded on the fast path.
//
// The recorder creates the event before the downstream handler runs and
// backfills the response fields exactly once afterwards, setting Processed.
// After that the event is read-only until the memory governor evicts it.
type SecurityEvent struct {
	ID        string              `json:"id"`
	SourceIP  string              `json:"source_ip"`
	Method    string              `json:"method"`
	Path      string              `json:"path"`
	Query     map[string][]string `json:"query,omitempty"`
	UserAgent string              `json:"user_agent"`
	Headers   map[string]string   `json:"headers,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
	BodySize  int64               `json:"body_size"`

	// Filled after the response is written.
	ResponseStatus int     `json:"response_status"`
	ResponseTimeMs float64 `json:"response_time_ms"`
	ResponseSize   int64   `json:"response_size"`

	RiskScore   float64  `json:"risk_score"`
	ThreatLevel Severity `json:"threat_level"`
	Processed   bool     `json:"processed"`
}

// IsError reports whether the backfilled status is a client or server error.
func (e *SecurityEvent) IsError() bool {
	return e.ResponseStatus >= 400
}

// BehavioralProfile summarizes traffic for a source (ip:<addr>) or an
// endpoint (endpoint:<method>:<path>).
type BehavioralProfile struct {
	Key               string    `json:"key"`
	RequestCount      int       `json:"request_count"`
	UniquePaths       int       `json:"unique_paths"`
	UniqueMethods     int       `json:"unique_methods"`
	UniqueIPs         int       `json:"unique_ips"`
	AvgResponseTimeMs float64   `json:"avg_response_time_ms"`
	ErrorCount        int       `json:"error_count"`
	LastSeen          time.Time `json:"last_seen"`
}

// TrafficMetrics are the per-window figures computed by traffic analytics.
type TrafficMetrics struct {
	TotalRequests     int     `json:"total_requests"`
	UniqueSources     int     `json:"unique_sources"`
	UniquePaths       int     `json:"unique_paths"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	ErrorRate         float64 `json:"error_rate"`
	SuspiciousCount   int     `json:"suspicious_count"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// AnomalyType names a statistical anomaly.
type AnomalyType string

const (
	AnomalyHighRequestRate  AnomalyType = "HIGH_REQUEST_RATE"
	AnomalyHighErrorRate    AnomalyType = "HIGH_ERROR_RATE"
	AnomalySlowResponse     AnomalyType = "SLOW_RESPONSE"
	AnomalyStatisticalSpike AnomalyType = "STATISTICAL_SPIKE"
)

// Anomaly is a threshold or baseline violation found by traffic analytics.
type Anomaly struct {
	Type        AnomalyType `json:"type"`
	Severity    Severity    `json:"severity"`
	Value       float64     `json:"value"`
	Threshold   float64     `json:"threshold"`
	Description string      `json:"description"`
}

// ThreatIndicator is the live aggregate for one key, overwritten every cycle.
type ThreatIndicator struct {
	Key         string         `json:"key"`
	ThreatScore float64        `json:"threat_score"`
	LastUpdated time.Time      `json:"last_updated"`
	Anomalies   []Anomaly      `json:"anomalies"`
	Metrics     TrafficMetrics `json:"metrics"`
}

// GlobalTrafficKey is the indicator key maintained by traffic analytics.
const GlobalTrafficKey = "global_traffic"
