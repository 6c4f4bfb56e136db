// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordThreat verifies labelled threat counters
func TestRecordThreat(t *testing.T) {
	before := testutil.ToFloat64(ThreatsDetected.WithLabelValues("SQL_INJECTION", "CRITICAL"))
	RecordThreat("SQL_INJECTION", "CRITICAL")
	RecordThreat("SQL_INJECTION", "CRITICAL")
	after := testutil.ToFloat64(ThreatsDetected.WithLabelValues("SQL_INJECTION", "CRITICAL"))

	if after-before != 2 {
		t.Errorf("threat counter delta = %v, want 2", after-before)
	}
}

// TestRecordEviction verifies that non-positive counts are ignored
func TestRecordEviction(t *testing.T) {
	c := Evictions.WithLabelValues("events")
	before := testutil.ToFloat64(c)

	RecordEviction("events", 0)
	RecordEviction("events", -3)
	if got := testutil.ToFloat64(c); got != before {
		t.Errorf("non-positive eviction changed counter: %v -> %v", before, got)
	}

	RecordEviction("events", 5)
	if got := testutil.ToFloat64(c); got-before != 5 {
		t.Errorf("eviction delta = %v, want 5", got-before)
	}
}

// TestRecordPlaybookAction verifies result labelling
func TestRecordPlaybookAction(t *testing.T) {
	tests := []struct {
		name    string
		success bool
		result  string
	}{
		{"success", true, "success"},
		{"failure", false, "failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := PlaybookActions.WithLabelValues("notify", tt.result)
			before := testutil.ToFloat64(c)
			RecordPlaybookAction("notify", tt.success)
			if got := testutil.ToFloat64(c); got-before != 1 {
				t.Errorf("counter delta = %v, want 1", got-before)
			}
		})
	}
}

// TestRecordAPIRequest tests API request metric recording
func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		endpoint   string
		statusCode string
		duration   time.Duration
	}{
		{"active incidents", "GET", "/api/v1/security/incidents", "200", 5 * time.Millisecond},
		{"resolve unknown", "POST", "/api/v1/security/incidents/{id}/resolve", "404", 2 * time.Millisecond},
		{"login", "POST", "/api/v1/auth/login", "200", 150 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.statusCode)
			before := testutil.ToFloat64(c)
			RecordAPIRequest(tt.method, tt.endpoint, tt.statusCode, tt.duration)
			if got := testutil.ToFloat64(c); got-before != 1 {
				t.Errorf("request counter delta = %v, want 1", got-before)
			}
		})
	}
}

// TestTrackActiveRequest_RequestLifecycle simulates a realistic request lifecycle
func TestTrackActiveRequest_RequestLifecycle(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)
	for i := 0; i < 10; i++ {
		TrackActiveRequest(true)
	}
	for i := 0; i < 10; i++ {
		TrackActiveRequest(false)
	}
	if got := testutil.ToFloat64(APIActiveRequests); got != start {
		t.Errorf("active requests = %v after balanced lifecycle, want %v", got, start)
	}
}

func TestCircuitStateValue(t *testing.T) {
	tests := map[string]float64{"closed": 0, "half-open": 1, "open": 2, "bogus": 0}
	for state, want := range tests {
		if got := CircuitStateValue(state); got != want {
			t.Errorf("CircuitStateValue(%q) = %v, want %v", state, got, want)
		}
	}
}

// TestConcurrentMetricRecording verifies collectors tolerate concurrent writers
func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				RecordAlert("INCIDENT_CREATED")
				RecordBlocked("rate_limit")
				UpdateCollectionSize("events", j)
				RecordRequestOverhead(time.Microsecond)
			}
		}()
	}
	wg.Wait()
}

// TestMetricsRegistration verifies the collectors are registered with the default registry
func TestMetricsRegistration(t *testing.T) {
	RecordThreat("XSS", "HIGH")
	RecordIncidentCreated("HIGH")
	MemoryCleanups.Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"sentinel_threats_detected_total",
		"sentinel_incidents_created_total",
		"sentinel_memory_cleanups_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}
