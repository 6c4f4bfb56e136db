// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package profiler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/secutil"
)

// Key prefixes for profile scopes.
const (
	SourcePrefix   = "ip:"
	EndpointPrefix = "endpoint:"
)

// AnomalyScore is the numeric severity score given to behavioral findings.
const AnomalyScore = 50.0

// EventSource exposes the current event buffer.
type EventSource interface {
	All() []models.SecurityEvent
}

// FindingSink receives behavioral anomalies.
type FindingSink interface {
	HandleFindings(ctx context.Context, findings []models.ThreatFinding)
}

// Config configures the Profiler.
type Config struct {
	Interval time.Duration

	// RequestGrowth and ErrorGrowth are relative increases over the stored
	// profile (2.0 means +200%).
	RequestGrowth float64
	ErrorGrowth   float64

	// MinErrors is the smallest current error count that can flag error growth.
	MinErrors int
}

// DefaultConfig returns a 30s interval with +200% request and +100% error
// growth limits.
func DefaultConfig() Config {
	return Config{
		Interval:      30 * time.Second,
		RequestGrowth: 2.0,
		ErrorGrowth:   1.0,
		MinErrors:     5,
	}
}

// Profiler compares fresh per-source and per-endpoint aggregates with the
// previous cycle's profiles.
type Profiler struct {
	cfg      Config
	events   EventSource
	profiles *ProfileStore
	sink     FindingSink
	log      zerolog.Logger

	cycles    atomic.Int64
	errors    atomic.Int64
	anomalies atomic.Int64
	lastRun   atomic.Int64
}

// New creates a Profiler. sink may be nil.
func New(cfg Config, events EventSource, profiles *ProfileStore, sink FindingSink) *Profiler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.RequestGrowth <= 0 {
		cfg.RequestGrowth = def.RequestGrowth
	}
	if cfg.ErrorGrowth <= 0 {
		cfg.ErrorGrowth = def.ErrorGrowth
	}
	if cfg.MinErrors <= 0 {
		cfg.MinErrors = def.MinErrors
	}
	return &Profiler{
		cfg:      cfg,
		events:   events,
		profiles: profiles,
		sink:     sink,
		log:      logging.WithComponent("profiler"),
	}
}

// RunWithContext profiles every Interval until ctx is canceled.
func (p *Profiler) RunWithContext(ctx context.Context) error {
	p.log.Info().Dur("interval", p.cfg.Interval).Msg("behavioral profiler started")
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("behavioral profiler stopped")
			return ctx.Err()
		case now := <-ticker.C:
			p.safeCycle(ctx, now)
		}
	}
}

func (p *Profiler) safeCycle(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			p.errors.Add(1)
			metrics.RecordDetectorError("profiler")
			p.log.Error().Str("panic", fmt.Sprint(r)).Msg("profiler cycle panicked")
		}
	}()
	p.RunCycle(ctx, now)
}

// RunCycle rebuilds every profile from the event buffer, forwards
// anomalies and overwrites the stored profiles. It returns the findings.
func (p *Profiler) RunCycle(ctx context.Context, now time.Time) []models.ThreatFinding {
	start := time.Now()
	defer func() {
		p.cycles.Add(1)
		p.lastRun.Store(int64(time.Since(start)))
	}()

	current := BuildProfiles(p.events.All())
	keys := make([]string, 0, len(current))
	for k := range current {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var findings []models.ThreatFinding
	for _, key := range keys {
		cur := current[key]
		if prev, ok := p.profiles.Get(key); ok {
			if reason, anomalous := p.compare(prev, cur); anomalous {
				findings = append(findings, newFinding(cur, reason, now))
			}
		}
		p.profiles.Put(cur)
	}

	if len(findings) > 0 {
		p.anomalies.Add(int64(len(findings)))
		for range findings {
			metrics.RecordAnomaly(string(models.ThreatBehavioralAnomaly))
		}
		p.log.Warn().Int("anomalies", len(findings)).Msg("behavioral anomalies detected")
		if p.sink != nil {
			p.sink.HandleFindings(ctx, findings)
		}
	}
	return findings
}

// compare flags request growth above RequestGrowth, or error growth above
// ErrorGrowth once the current error count reaches MinErrors. Error growth
// from a stored count of zero counts as unbounded.
func (p *Profiler) compare(prev, cur models.BehavioralProfile) (string, bool) {
	if prev.RequestCount > 0 {
		growth := float64(cur.RequestCount-prev.RequestCount) / float64(prev.RequestCount)
		if growth > p.cfg.RequestGrowth {
			return fmt.Sprintf("request count grew %.0f%% (%d -> %d)", growth*100, prev.RequestCount, cur.RequestCount), true
		}
	}
	if cur.ErrorCount >= p.cfg.MinErrors {
		if prev.ErrorCount == 0 {
			return fmt.Sprintf("errors appeared (0 -> %d)", cur.ErrorCount), true
		}
		growth := float64(cur.ErrorCount-prev.ErrorCount) / float64(prev.ErrorCount)
		if growth > p.cfg.ErrorGrowth {
			return fmt.Sprintf("error count grew %.0f%% (%d -> %d)", growth*100, prev.ErrorCount, cur.ErrorCount), true
		}
	}
	return "", false
}

func newFinding(prof models.BehavioralProfile, reason string, now time.Time) models.ThreatFinding {
	f := models.ThreatFinding{
		Type:       models.ThreatBehavioralAnomaly,
		Severity:   models.SeverityMedium,
		Confidence: 0.7,
		Location:   prof.Key,
		Excerpt:    models.Excerpt(reason),
		Timestamp:  now,
		Score:      AnomalyScore,
	}
	if ip, ok := strings.CutPrefix(prof.Key, SourcePrefix); ok {
		f.SourceIP = ip
	}
	return f
}

type aggregate struct {
	profile models.BehavioralProfile
	paths   map[string]struct{}
	methods map[string]struct{}
	ips     map[string]struct{}
	latency float64
}

func (a *aggregate) add(evt *models.SecurityEvent) {
	a.profile.RequestCount++
	if evt.IsError() {
		a.profile.ErrorCount++
	}
	a.latency += evt.ResponseTimeMs
	a.paths[evt.Path] = struct{}{}
	a.methods[evt.Method] = struct{}{}
	a.ips[evt.SourceIP] = struct{}{}
	if evt.Timestamp.After(a.profile.LastSeen) {
		a.profile.LastSeen = evt.Timestamp
	}
}

// BuildProfiles aggregates events into ip:<addr> and
// endpoint:<method>:<path> profiles.
func BuildProfiles(events []models.SecurityEvent) map[string]models.BehavioralProfile {
	aggs := make(map[string]*aggregate)
	get := func(key string) *aggregate {
		a, ok := aggs[key]
		if !ok {
			a = &aggregate{
				profile: models.BehavioralProfile{Key: key},
				paths:   make(map[string]struct{}),
				methods: make(map[string]struct{}),
				ips:     make(map[string]struct{}),
			}
			aggs[key] = a
		}
		return a
	}

	for i := range events {
		evt := &events[i]
		get(SourcePrefix + evt.SourceIP).add(evt)
		get(EndpointPrefix + evt.Method + ":" + evt.Path).add(evt)
	}

	out := make(map[string]models.BehavioralProfile, len(aggs))
	for key, a := range aggs {
		p := a.profile
		p.UniquePaths = len(a.paths)
		p.UniqueMethods = len(a.methods)
		p.UniqueIPs = len(a.ips)
		p.AvgResponseTimeMs = secutil.SafeDivide(a.latency, float64(p.RequestCount))
		out[key] = p
	}
	return out
}

// Stats describes recent profiler activity.
type Stats struct {
	Cycles    int64
	Errors    int64
	Anomalies int64
	LastRun   time.Duration
}

// Stats returns a snapshot of profiler counters.
func (p *Profiler) Stats() Stats {
	return Stats{
		Cycles:    p.cycles.Load(),
		Errors:    p.errors.Load(),
		Anomalies: p.anomalies.Load(),
		LastRun:   time.Duration(p.lastRun.Load()),
	}
}
