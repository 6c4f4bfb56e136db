// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package threat

import (
	"fmt"
	"time"

	"github.com/tomtom215/sentinel/internal/cache"
	"github.com/tomtom215/sentinel/internal/models"
)

// BruteForceScore lands a credential-guessing burst above the incident
// creation threshold.
const BruteForceScore = 75

type failureWindow struct {
	times    []time.Time
	reported bool
}

// BruteForceDetector counts failed authentications per source address in a
// sliding window. A source that reaches the threshold is reported once; it
// is reported again only after its window has drained.
type BruteForceDetector struct {
	threshold int
	window    time.Duration
	maxKeys   int
	failures  *cache.TimedStore[failureWindow]
}

// NewBruteForceDetector tracks at most maxKeys sources. A threshold below
// one disables detection.
func NewBruteForceDetector(threshold int, window time.Duration, maxKeys int) *BruteForceDetector {
	return &BruteForceDetector{
		threshold: threshold,
		window:    window,
		maxKeys:   maxKeys,
		failures:  cache.NewTimedStore[failureWindow](),
	}
}

// Tracked returns the number of sources with failures in memory.
func (d *BruteForceDetector) Tracked() int { return d.failures.Len() }

// RecordFailure adds one failed authentication from source. It returns a
// BRUTE_FORCE finding when this failure makes the source cross the
// threshold.
func (d *BruteForceDetector) RecordFailure(source, username string, at time.Time) (models.ThreatFinding, bool) {
	if d.threshold < 1 || d.window <= 0 {
		return models.ThreatFinding{}, false
	}
	cutoff := at.Add(-d.window)
	d.failures.EvictBefore(cutoff)

	d.failures.PutIfAbsent(source, failureWindow{}, at)
	var count int
	var crossed bool
	d.failures.Update(source, func(w *failureWindow) {
		kept := w.times[:0]
		for _, t := range w.times {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			w.reported = false
		}
		w.times = append(kept, at)
		count = len(w.times)
		if !w.reported && count >= d.threshold {
			w.reported = true
			crossed = true
		}
	})
	d.failures.Touch(source, at)
	if d.maxKeys > 0 {
		d.failures.TrimTo(d.maxKeys)
	}
	if !crossed {
		return models.ThreatFinding{}, false
	}

	excerpt := fmt.Sprintf("%d failed authentications in %s", count, d.window)
	if username != "" {
		excerpt += " (user " + username + ")"
	}
	return models.ThreatFinding{
		Type:       models.ThreatBruteForce,
		Severity:   models.SeverityHigh,
		Confidence: 0.9,
		Location:   "auth",
		Excerpt:    models.Excerpt(excerpt),
		Timestamp:  at,
		SourceIP:   source,
		Score:      BruteForceScore,
	}, true
}
