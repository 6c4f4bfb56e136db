// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package analytics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/secutil"
)

// Fixed thresholds for scoring and absolute anomalies.
const (
	HighRequestRate   = 100.0
	ScoreErrorRate    = 0.2
	AnomalyErrorRate  = 0.3
	SuspiciousCount   = 10
	LowDiversityLimit = 3
	LowDiversityMin   = 50
	SlowResponseMs    = 2000.0

	// AlertScore is the threat score above which a cycle alerts even
	// without an anomaly.
	AlertScore = 50.0
	// CriticalScore promotes the alert to CRITICAL.
	CriticalScore = 80.0

	// minSpikeSamples is how many baseline cycles are needed before
	// STATISTICAL_SPIKE can fire.
	minSpikeSamples = 10
)

// EventSource is the read side of the event buffer.
type EventSource interface {
	Since(t time.Time) []models.SecurityEvent
}

// FindingSink receives traffic anomalies as scored findings.
type FindingSink interface {
	HandleFindings(ctx context.Context, findings []models.ThreatFinding)
}

// AlertEmitter publishes alerts to subscribers.
type AlertEmitter interface {
	Emit(ctx context.Context, a models.Alert)
}

// Config configures the Engine.
type Config struct {
	Interval time.Duration
	Window   time.Duration
	// SuspiciousRisk is the per-event risk score above which an event counts
	// as suspicious.
	SuspiciousRisk float64
	// BaselineSize is the number of cycle request rates kept for spike detection.
	BaselineSize int
}

// DefaultConfig returns the standard one-second cycle over a 60s window.
func DefaultConfig() Config {
	return Config{
		Interval:       time.Second,
		Window:         60 * time.Second,
		SuspiciousRisk: 50,
		BaselineSize:   60,
	}
}

// Stats describes the engine's recent activity.
type Stats struct {
	Cycles      int64
	Errors      int64
	Anomalies   int64
	LastRun     time.Duration
	ThreatScore float64
}

// Engine periodically windows the event buffer, scores global traffic and
// raises TRAFFIC_ANOMALY alerts.
type Engine struct {
	cfg        Config
	events     EventSource
	indicators *IndicatorStore
	sink       FindingSink
	alerts     AlertEmitter
	log        zerolog.Logger

	mu       sync.Mutex
	baseline *Baseline
	score    float64

	cycles    atomic.Int64
	errors    atomic.Int64
	anomalies atomic.Int64
	lastRun   atomic.Int64
}

// New creates an Engine. sink and alerts may be nil.
func New(cfg Config, events EventSource, indicators *IndicatorStore, sink FindingSink, alerts AlertEmitter) *Engine {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.BaselineSize <= 0 {
		cfg.BaselineSize = def.BaselineSize
	}
	return &Engine{
		cfg:        cfg,
		events:     events,
		indicators: indicators,
		sink:       sink,
		alerts:     alerts,
		baseline:   NewBaseline(cfg.BaselineSize),
		log:        logging.WithComponent("analytics"),
	}
}

// RunWithContext runs a cycle every Interval until ctx is canceled.
func (e *Engine) RunWithContext(ctx context.Context) error {
	e.log.Info().Dur("interval", e.cfg.Interval).Dur("window", e.cfg.Window).Msg("traffic analytics started")
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("traffic analytics stopped")
			return ctx.Err()
		case now := <-ticker.C:
			e.safeCycle(ctx, now)
		}
	}
}

// safeCycle keeps a panicking cycle from taking the loop down.
func (e *Engine) safeCycle(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			e.errors.Add(1)
			metrics.RecordDetectorError("analytics")
			e.log.Error().Str("panic", fmt.Sprint(r)).Msg("analytics cycle panicked")
		}
	}()
	e.RunCycle(ctx, now)
}

// RunCycle performs one analysis pass as of now and returns the updated
// global indicator.
func (e *Engine) RunCycle(ctx context.Context, now time.Time) models.ThreatIndicator {
	start := time.Now()
	defer func() {
		e.cycles.Add(1)
		e.lastRun.Store(int64(time.Since(start)))
	}()

	window := e.events.Since(now.Add(-e.cfg.Window))
	m := ComputeMetrics(window, e.cfg.Window, e.cfg.SuspiciousRisk)
	score := ThreatScore(m)
	anomalies := DetectAnomalies(m)

	e.mu.Lock()
	if e.baseline.Len() >= minSpikeSamples {
		if threshold := e.baseline.SpikeThreshold(); m.RequestsPerSecond > threshold {
			anomalies = append(anomalies, models.Anomaly{
				Type:        models.AnomalyStatisticalSpike,
				Severity:    models.SeverityMedium,
				Value:       m.RequestsPerSecond,
				Threshold:   threshold,
				Description: fmt.Sprintf("request rate %.1f/s exceeds baseline %.1f/s", m.RequestsPerSecond, threshold),
			})
		}
	}
	e.baseline.Add(m.RequestsPerSecond)
	e.score = score
	e.mu.Unlock()

	ind := models.ThreatIndicator{
		Key:         models.GlobalTrafficKey,
		ThreatScore: score,
		LastUpdated: now,
		Anomalies:   anomalies,
		Metrics:     m,
	}
	metrics.ThreatScore.Set(score)
	for _, a := range anomalies {
		e.anomalies.Add(1)
		metrics.RecordAnomaly(string(a.Type))
	}

	if e.indicators != nil {
		e.indicators.Upsert(ind)
	}
	if score > AlertScore || len(anomalies) > 0 {
		e.raise(ctx, ind)
	}
	return ind
}

func (e *Engine) raise(ctx context.Context, ind models.ThreatIndicator) {
	sev := models.SeverityHigh
	if ind.ThreatScore > CriticalScore {
		sev = models.SeverityCritical
	}

	e.log.Warn().
		Float64("threat_score", ind.ThreatScore).
		Int("anomalies", len(ind.Anomalies)).
		Float64("rps", ind.Metrics.RequestsPerSecond).
		Msg("traffic anomaly")

	if e.alerts != nil {
		e.alerts.Emit(ctx, models.Alert{
			ID:        secutil.GenerateSecureID("alert"),
			Type:      models.AlertTrafficAnomaly,
			Severity:  sev,
			Payload:   ind,
			Timestamp: ind.LastUpdated,
		})
	}
	if e.sink != nil {
		e.sink.HandleFindings(ctx, []models.ThreatFinding{{
			Type:       models.ThreatTrafficAnomaly,
			Severity:   sev,
			Confidence: 1,
			Location:   models.GlobalTrafficKey,
			Excerpt:    models.Excerpt(describe(ind)),
			Timestamp:  ind.LastUpdated,
			Score:      ind.ThreatScore,
		}})
	}
}

func describe(ind models.ThreatIndicator) string {
	if len(ind.Anomalies) == 0 {
		return fmt.Sprintf("traffic threat score %.0f", ind.ThreatScore)
	}
	return fmt.Sprintf("%s (score %.0f)", ind.Anomalies[0].Description, ind.ThreatScore)
}

// ComputeMetrics aggregates the events of one window.
func ComputeMetrics(events []models.SecurityEvent, window time.Duration, suspiciousRisk float64) models.TrafficMetrics {
	m := models.TrafficMetrics{TotalRequests: len(events)}
	if len(events) == 0 {
		return m
	}

	sources := make(map[string]struct{})
	paths := make(map[string]struct{})
	var latency float64
	var errs int
	for i := range events {
		evt := &events[i]
		sources[evt.SourceIP] = struct{}{}
		paths[evt.Path] = struct{}{}
		latency += evt.ResponseTimeMs
		if evt.IsError() {
			errs++
		}
		if evt.RiskScore > suspiciousRisk {
			m.SuspiciousCount++
		}
	}

	n := float64(len(events))
	m.UniqueSources = len(sources)
	m.UniquePaths = len(paths)
	m.AvgResponseTimeMs = latency / n
	m.ErrorRate = float64(errs) / n
	m.RequestsPerSecond = secutil.SafeDivide(n, window.Seconds())
	return m
}

// ThreatScore derives the 0-100 traffic score.
func ThreatScore(m models.TrafficMetrics) float64 {
	var score float64
	if m.RequestsPerSecond > HighRequestRate {
		score += 30
	}
	if m.ErrorRate > ScoreErrorRate {
		score += 25
	}
	if m.SuspiciousCount > SuspiciousCount {
		score += 25
	}
	if m.UniqueSources < LowDiversityLimit && m.TotalRequests > LowDiversityMin {
		score += 20
	}
	return secutil.ClampFloat(score, 0, 100)
}

// DetectAnomalies flags the absolute-threshold anomalies.
func DetectAnomalies(m models.TrafficMetrics) []models.Anomaly {
	var out []models.Anomaly
	if m.RequestsPerSecond > HighRequestRate {
		out = append(out, models.Anomaly{
			Type:        models.AnomalyHighRequestRate,
			Severity:    models.SeverityHigh,
			Value:       m.RequestsPerSecond,
			Threshold:   HighRequestRate,
			Description: fmt.Sprintf("request rate %.1f/s", m.RequestsPerSecond),
		})
	}
	if m.ErrorRate > AnomalyErrorRate {
		out = append(out, models.Anomaly{
			Type:        models.AnomalyHighErrorRate,
			Severity:    models.SeverityHigh,
			Value:       m.ErrorRate,
			Threshold:   AnomalyErrorRate,
			Description: fmt.Sprintf("error rate %.0f%%", m.ErrorRate*100),
		})
	}
	if m.AvgResponseTimeMs > SlowResponseMs {
		out = append(out, models.Anomaly{
			Type:        models.AnomalySlowResponse,
			Severity:    models.SeverityMedium,
			Value:       m.AvgResponseTimeMs,
			Threshold:   SlowResponseMs,
			Description: fmt.Sprintf("average response %.0fms", m.AvgResponseTimeMs),
		})
	}
	return out
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	score := e.score
	e.mu.Unlock()
	return Stats{
		Cycles:      e.cycles.Load(),
		Errors:      e.errors.Load(),
		Anomalies:   e.anomalies.Load(),
		LastRun:     time.Duration(e.lastRun.Load()),
		ThreatScore: score,
	}
}
