// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package analytics

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/sentinel/internal/models"
)

type sliceSource struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (s *sliceSource) set(events []models.SecurityEvent) {
	s.mu.Lock()
	s.events = events
	s.mu.Unlock()
}

func (s *sliceSource) Since(t time.Time) []models.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SecurityEvent
	for _, e := range s.events {
		if !e.Timestamp.Before(t) {
			out = append(out, e)
		}
	}
	return out
}

type panicSource struct{}

func (panicSource) Since(time.Time) []models.SecurityEvent { panic("buffer corrupted") }

type recordingAlerts struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (r *recordingAlerts) Emit(_ context.Context, a models.Alert) {
	r.mu.Lock()
	r.alerts = append(r.alerts, a)
	r.mu.Unlock()
}

type recordingSink struct {
	findings []models.ThreatFinding
}

func (r *recordingSink) HandleFindings(_ context.Context, f []models.ThreatFinding) {
	r.findings = append(r.findings, f...)
}

// makeEvents spreads n events over the 60s before now across the given
// number of sources.
func makeEvents(now time.Time, n, sources int) []models.SecurityEvent {
	out := make([]models.SecurityEvent, n)
	for i := range out {
		out[i] = models.SecurityEvent{
			ID:             fmt.Sprintf("evt_%d", i),
			SourceIP:       fmt.Sprintf("198.51.100.%d", i%sources),
			Path:           "/",
			Timestamp:      now.Add(-time.Duration(i%59) * time.Second),
			ResponseStatus: 200,
			ResponseTimeMs: 5,
		}
	}
	return out
}

func TestComputeMetrics(t *testing.T) {
	now := time.Now()
	events := []models.SecurityEvent{
		{SourceIP: "a", Path: "/x", ResponseStatus: 200, ResponseTimeMs: 10, Timestamp: now},
		{SourceIP: "b", Path: "/x", ResponseStatus: 500, ResponseTimeMs: 30, Timestamp: now, RiskScore: 60},
		{SourceIP: "a", Path: "/y", ResponseStatus: 404, ResponseTimeMs: 20, Timestamp: now, RiskScore: 50},
	}
	m := ComputeMetrics(events, 60*time.Second, 50)

	if m.TotalRequests != 3 || m.UniqueSources != 2 || m.UniquePaths != 2 {
		t.Errorf("counts = %+v", m)
	}
	if m.AvgResponseTimeMs != 20 {
		t.Errorf("AvgResponseTimeMs = %v, want 20", m.AvgResponseTimeMs)
	}
	if m.ErrorRate < 0.66 || m.ErrorRate > 0.67 {
		t.Errorf("ErrorRate = %v", m.ErrorRate)
	}
	if m.SuspiciousCount != 1 {
		t.Errorf("SuspiciousCount = %d, want 1 (risk must exceed the threshold)", m.SuspiciousCount)
	}
	if m.RequestsPerSecond != 0.05 {
		t.Errorf("RequestsPerSecond = %v, want 0.05", m.RequestsPerSecond)
	}
}

func TestThreatScore(t *testing.T) {
	tests := []struct {
		name string
		m    models.TrafficMetrics
		want float64
	}{
		{"quiet", models.TrafficMetrics{TotalRequests: 10, UniqueSources: 5}, 0},
		{"high rate", models.TrafficMetrics{RequestsPerSecond: 150, TotalRequests: 9000, UniqueSources: 20}, 30},
		{"errors", models.TrafficMetrics{ErrorRate: 0.25, UniqueSources: 5}, 25},
		{"suspicious", models.TrafficMetrics{SuspiciousCount: 11, UniqueSources: 5}, 25},
		{"low diversity", models.TrafficMetrics{TotalRequests: 51, UniqueSources: 2}, 20},
		{"everything", models.TrafficMetrics{RequestsPerSecond: 150, TotalRequests: 9000, UniqueSources: 1, ErrorRate: 0.5, SuspiciousCount: 50}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ThreatScore(tt.m); got != tt.want {
				t.Errorf("ThreatScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectAnomalies(t *testing.T) {
	got := DetectAnomalies(models.TrafficMetrics{RequestsPerSecond: 101, ErrorRate: 0.31, AvgResponseTimeMs: 2500})
	want := map[models.AnomalyType]models.Severity{
		models.AnomalyHighRequestRate: models.SeverityHigh,
		models.AnomalyHighErrorRate:   models.SeverityHigh,
		models.AnomalySlowResponse:    models.SeverityMedium,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d anomalies, want %d: %+v", len(got), len(want), got)
	}
	for _, a := range got {
		if want[a.Type] != a.Severity {
			t.Errorf("%s severity = %s, want %s", a.Type, a.Severity, want[a.Type])
		}
	}
	if len(DetectAnomalies(models.TrafficMetrics{RequestsPerSecond: 100, ErrorRate: 0.3, AvgResponseTimeMs: 2000})) != 0 {
		t.Error("thresholds must be exclusive")
	}
}

func TestRunCycle_BurstRaisesHighRequestRate(t *testing.T) {
	now := time.Now()
	src := &sliceSource{}
	indicators := NewIndicatorStore()
	alerts := &recordingAlerts{}
	sink := &recordingSink{}
	eng := New(DefaultConfig(), src, indicators, sink, alerts)

	src.set(makeEvents(now, 120, 10))
	before := eng.RunCycle(context.Background(), now)
	if before.ThreatScore != 0 || len(alerts.alerts) != 0 {
		t.Fatalf("quiet traffic scored %v with %d alerts", before.ThreatScore, len(alerts.alerts))
	}

	// 101 requests/s sustained over the window from a single source.
	src.set(makeEvents(now, 6060, 1))
	after := eng.RunCycle(context.Background(), now)

	var found bool
	for _, a := range after.Anomalies {
		if a.Type == models.AnomalyHighRequestRate && a.Severity == models.SeverityHigh {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing HIGH_REQUEST_RATE in %+v", after.Anomalies)
	}
	if after.ThreatScore <= before.ThreatScore {
		t.Errorf("threat score did not increase: %v -> %v", before.ThreatScore, after.ThreatScore)
	}

	stored, ok := indicators.Get(models.GlobalTrafficKey)
	if !ok || stored.ThreatScore != after.ThreatScore {
		t.Errorf("global indicator not updated: %+v", stored)
	}
	if len(alerts.alerts) != 1 || alerts.alerts[0].Type != models.AlertTrafficAnomaly {
		t.Fatalf("alerts = %+v", alerts.alerts)
	}
	// rate +30, low diversity +20
	if alerts.alerts[0].Severity != models.SeverityHigh {
		t.Errorf("alert severity = %s, want HIGH", alerts.alerts[0].Severity)
	}
	if len(sink.findings) != 1 || sink.findings[0].Type != models.ThreatTrafficAnomaly || sink.findings[0].Score != 50 {
		t.Errorf("forwarded findings = %+v", sink.findings)
	}
}

func TestRunCycle_StatisticalSpike(t *testing.T) {
	now := time.Now()
	src := &sliceSource{}
	eng := New(DefaultConfig(), src, NewIndicatorStore(), nil, nil)

	src.set(makeEvents(now, 60, 10))
	for i := 0; i < minSpikeSamples; i++ {
		if ind := eng.RunCycle(context.Background(), now); len(ind.Anomalies) != 0 {
			t.Fatalf("steady traffic flagged on cycle %d: %+v", i, ind.Anomalies)
		}
	}

	src.set(makeEvents(now, 1200, 10))
	ind := eng.RunCycle(context.Background(), now)
	if len(ind.Anomalies) != 1 || ind.Anomalies[0].Type != models.AnomalyStatisticalSpike {
		t.Fatalf("anomalies = %+v, want one STATISTICAL_SPIKE", ind.Anomalies)
	}
	if ind.Anomalies[0].Severity != models.SeverityMedium {
		t.Errorf("spike severity = %s", ind.Anomalies[0].Severity)
	}
}

func TestRunWithContext_RecoversPanic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = 5 * time.Millisecond
	eng := New(cfg, panicSource{}, nil, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := eng.RunWithContext(ctx); err != context.DeadlineExceeded {
		t.Errorf("RunWithContext() = %v", err)
	}
	if eng.Stats().Errors == 0 {
		t.Error("panicking cycles were not counted")
	}
}

func TestBaseline(t *testing.T) {
	b := NewBaseline(3)
	for _, v := range []float64{10, 2, 4, 6} {
		b.Add(v)
	}
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	mean, _ := b.MeanStdDev()
	if mean != 4 {
		t.Errorf("mean = %v, want 4 (oldest sample must be overwritten)", mean)
	}
}

func TestIndicatorStore_MostRecentFirst(t *testing.T) {
	s := NewIndicatorStore()
	base := time.Now()
	s.Upsert(models.ThreatIndicator{Key: "a", LastUpdated: base})
	s.Upsert(models.ThreatIndicator{Key: "b", LastUpdated: base.Add(time.Second)})
	s.Upsert(models.ThreatIndicator{Key: "a", LastUpdated: base.Add(2 * time.Second)})

	all := s.All()
	if len(all) != 2 || all[0].Key != "a" {
		t.Errorf("All() = %+v", all)
	}
	if n := s.TrimTo(1); n != 1 {
		t.Errorf("TrimTo evicted %d", n)
	}
	if _, ok := s.Get("b"); ok {
		t.Error("stalest indicator survived trim")
	}
}
