// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package threat

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/sentinel/internal/models"
)

type failure struct {
	source string
	offset time.Duration
}

func burst(source string, n int, step time.Duration) []failure {
	out := make([]failure, n)
	for i := range out {
		out[i] = failure{source: source, offset: time.Duration(i) * step}
	}
	return out
}

func TestBruteForceDetector(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		threshold int
		failures  []failure
		want      int
	}{
		{"threshold inside window", 5, burst("203.0.113.9", 5, time.Second), 1},
		{"reported once per burst", 5, burst("203.0.113.9", 12, time.Second), 1},
		{"below threshold", 5, burst("203.0.113.9", 4, time.Second), 0},
		{"spread past window", 5, burst("203.0.113.9", 8, 2*time.Minute), 0},
		{"sources counted apart", 3, append(burst("203.0.113.9", 2, time.Second), burst("198.51.100.4", 2, time.Second)...), 0},
		{"new burst after drain", 3, append(burst("203.0.113.9", 3, time.Second),
			failure{"203.0.113.9", 10 * time.Minute},
			failure{"203.0.113.9", 10*time.Minute + time.Second},
			failure{"203.0.113.9", 10*time.Minute + 2*time.Second}), 2},
		{"disabled", 0, burst("203.0.113.9", 10, time.Second), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewBruteForceDetector(tt.threshold, 5*time.Minute, 100)
			var got []models.ThreatFinding
			for _, f := range tt.failures {
				if finding, ok := d.RecordFailure(f.source, "admin", base.Add(f.offset)); ok {
					got = append(got, finding)
				}
			}
			if len(got) != tt.want {
				t.Fatalf("findings = %d, want %d", len(got), tt.want)
			}
			for _, f := range got {
				if f.Type != models.ThreatBruteForce || f.Severity != models.SeverityHigh {
					t.Errorf("finding = %s/%s", f.Type, f.Severity)
				}
				if f.SourceIP != "203.0.113.9" || f.Location != "auth" || f.Score != BruteForceScore {
					t.Errorf("finding attribution = %+v", f)
				}
				if !strings.Contains(f.Excerpt, "user admin") {
					t.Errorf("excerpt = %q", f.Excerpt)
				}
			}
		})
	}
}

func TestBruteForceDetector_BoundsTrackedSources(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := NewBruteForceDetector(5, time.Minute, 3)
	for i, src := range []string{"a", "b", "c", "d", "e"} {
		d.RecordFailure(src, "", base.Add(time.Duration(i)*time.Second))
	}
	if got := d.Tracked(); got != 3 {
		t.Errorf("tracked = %d, want 3", got)
	}
	d.RecordFailure("f", "", base.Add(2*time.Minute))
	if got := d.Tracked(); got != 1 {
		t.Errorf("tracked after window = %d, want 1", got)
	}
}
