// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package models

// Severity is the categorical severity shared by findings, anomalies, alerts and incidents.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities for comparisons. Unknown values rank below LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// BaseScore is the numeric weight of a severity used by incident scoring.
func (s Severity) BaseScore() float64 {
	switch s {
	case SeverityCritical:
		return 100
	case SeverityHigh:
		return 80
	case SeverityMedium:
		return 50
	case SeverityLow:
		return 20
	default:
		return 0
	}
}

// RiskThresholds are the event risk cut-offs for the CRITICAL, HIGH and
// MEDIUM threat levels. Anything below Low is LOW.
type RiskThresholds struct {
	High   float64
	Medium float64
	Low    float64
}

// DefaultRiskThresholds is 75/50/25.
var DefaultRiskThresholds = RiskThresholds{High: 75, Medium: 50, Low: 25}

// Level maps an event risk score (0-100) to a threat level.
func (t RiskThresholds) Level(risk float64) Severity {
	switch {
	case risk >= t.High:
		return SeverityCritical
	case risk >= t.Medium:
		return SeverityHigh
	case risk >= t.Low:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// IsZero reports whether no threshold is set.
func (t RiskThresholds) IsZero() bool { return t == RiskThresholds{} }

// ThreatLevelFromRisk maps an event risk score using DefaultRiskThresholds.
func ThreatLevelFromRisk(risk float64) Severity {
	return DefaultRiskThresholds.Level(risk)
}

// SeverityFromScore maps a 0-100 incident score to a severity.
func SeverityFromScore(score float64) Severity {
	switch {
	case score >= 90:
		return SeverityCritical
	case score >= 70:
		return SeverityHigh
	case score >= 40:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
