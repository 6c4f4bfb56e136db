// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package threat

import (
	"regexp"
	"strings"

	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/secutil"
)

// Detector inspects one string field for one class of attack.
//
// Detect returns a finding with Type, Severity, Confidence and Excerpt set;
// the Dispatcher fills in location, timestamp and request attribution.
type Detector interface {
	Type() models.ThreatType
	Severity() models.Severity
	Detect(input string) (models.ThreatFinding, bool)
}

// patternDetector matches a fixed list of regular expressions. Confidence
// grows with the number of distinct patterns that match.
type patternDetector struct {
	threatType models.ThreatType
	severity   models.Severity
	patterns   []*regexp.Regexp
	lower      bool // match against the lower-cased input
}

func (d *patternDetector) Type() models.ThreatType   { return d.threatType }
func (d *patternDetector) Severity() models.Severity { return d.severity }

func (d *patternDetector) Detect(input string) (models.ThreatFinding, bool) {
	if input == "" {
		return models.ThreatFinding{}, false
	}
	s := input
	if d.lower {
		s = strings.ToLower(input)
	}

	matches := 0
	first := -1
	for _, p := range d.patterns {
		if loc := p.FindStringIndex(s); loc != nil {
			matches++
			if first < 0 || loc[0] < first {
				first = loc[0]
			}
		}
	}
	if matches == 0 {
		return models.ThreatFinding{}, false
	}
	return newFinding(d.threatType, d.severity, confidence(matches), excerptFrom(input, s, first)), true
}

// excerptFrom slices input at an offset found in s, which may be a
// lower-cased copy. Offsets are only trusted when the lengths agree.
func excerptFrom(input, s string, offset int) string {
	if len(s) != len(input) || offset < 0 || offset > len(input) {
		return input
	}
	return input[offset:]
}

// heuristicDetector wraps one of the secutil predicates.
type heuristicDetector struct {
	threatType models.ThreatType
	severity   models.Severity
	match      func(string) bool
	confidence float64
}

func (d *heuristicDetector) Type() models.ThreatType   { return d.threatType }
func (d *heuristicDetector) Severity() models.Severity { return d.severity }

func (d *heuristicDetector) Detect(input string) (models.ThreatFinding, bool) {
	if !d.match(input) {
		return models.ThreatFinding{}, false
	}
	return newFinding(d.threatType, d.severity, d.confidence, input), true
}

func newFinding(t models.ThreatType, sev models.Severity, conf float64, excerpt string) models.ThreatFinding {
	return models.ThreatFinding{
		Type:       t,
		Severity:   sev,
		Confidence: conf,
		Excerpt:    models.Excerpt(excerpt),
	}
}

func confidence(matches int) float64 {
	return secutil.ClampFloat(0.6+0.15*float64(matches-1), 0, 0.95)
}

// NewSQLInjectionDetector detects SQL injection (CRITICAL).
func NewSQLInjectionDetector() Detector {
	return &heuristicDetector{models.ThreatSQLInjection, models.SeverityCritical, secutil.HasSQLInjection, 0.8}
}

// NewXSSDetector detects cross-site scripting (HIGH).
func NewXSSDetector() Detector {
	return &heuristicDetector{models.ThreatXSS, models.SeverityHigh, secutil.HasXSS, 0.8}
}

// NewCommandInjectionDetector detects shell command injection (CRITICAL).
func NewCommandInjectionDetector() Detector {
	return &heuristicDetector{models.ThreatCommandInjection, models.SeverityCritical, secutil.HasCommandInjection, 0.75}
}

// NewPathTraversalDetector detects directory traversal (HIGH).
func NewPathTraversalDetector() Detector {
	return &heuristicDetector{models.ThreatPathTraversal, models.SeverityHigh, secutil.HasPathTraversal, 0.9}
}

// DefaultDetectors returns the four base detectors followed by the eight
// advanced ones.
func DefaultDetectors() []Detector {
	return []Detector{
		NewSQLInjectionDetector(),
		NewXSSDetector(),
		NewCommandInjectionDetector(),
		NewPathTraversalDetector(),
		NewLDAPInjectionDetector(),
		NewXXEDetector(),
		NewHeaderInjectionDetector(),
		NewPrototypePollutionDetector(),
		NewSSRFDetector(),
		NewTemplateInjectionDetector(),
		NewDeserializationDetector(),
		NewNoSQLInjectionDetector(),
	}
}
