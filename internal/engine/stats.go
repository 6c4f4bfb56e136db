// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package engine

import (
	"time"

	"github.com/tomtom215/sentinel/internal/models"
)

// Sizes returns the live size of every bounded collection.
func (e *Engine) Sizes() models.CollectionSizes {
	return models.CollectionSizes{
		Events:           e.events.Len(),
		ActiveIncidents:  e.incidents.ActiveLen(),
		IncidentHistory:  e.incidents.HistoryLen(),
		Indicators:       e.indicators.Len(),
		Profiles:         e.profiles.Len(),
		RateLimitBuckets: e.limiter.Len(),
	}
}

func (e *Engine) sizeMap() map[string]int {
	s := e.Sizes()
	return map[string]int{
		"events":             s.Events,
		"active_incidents":   s.ActiveIncidents,
		"incident_history":   s.IncidentHistory,
		"indicators":         s.Indicators,
		"profiles":           s.Profiles,
		"rate_limit_buckets": s.RateLimitBuckets,
	}
}

// Stats returns the statistics snapshot served by the administration API.
func (e *Engine) Stats() models.Stats {
	rec := e.recorder.Stats()
	an := e.analytics.Stats()
	pr := e.profiler.Stats()
	inc := e.incidents.Stats()

	perf := models.Performance{
		AvgRequestOverheadUs: rec.AvgRequestOverheadUs,
		LastAnalyticsRun:     an.LastRun,
		LastProfilerRun:      pr.LastRun,
		DeepScanQueueDepth:   rec.DeepScanQueueDepth,
		DeepScanDropped:      rec.DeepScanDropped,
		AnalyticsErrors:      an.Errors + pr.Errors,
	}
	if e.dispatcher != nil {
		perf.DetectorErrors = e.dispatcher.Stats().DetectorErrors
	}

	now := time.Now()
	return models.Stats{
		Counters: models.Counters{
			EventsProcessed:   rec.EventsProcessed + e.ingested.Load(),
			ThreatsDetected:   e.threats.Load(),
			AnomaliesDetected: an.Anomalies + pr.Anomalies,
			IncidentsCreated:  inc.Created,
			AlertsSent:        e.sink.Sent(),
			BlockedRequests:   rec.BlockedRequests,
			InvalidInputs:     rec.InvalidInputs,
			MemoryCleanups:    e.governor.Cleanups(),
		},
		Collections: e.Sizes(),
		Performance: perf,
		ThreatScore: an.ThreatScore,
		StartedAt:   e.startedAt,
		Uptime:      now.Sub(e.startedAt).Truncate(time.Second).String(),
	}
}
