// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package models

import "time"

// ThreatType is the category of a ThreatFinding.
type ThreatType string

const (
	ThreatSQLInjection            ThreatType = "SQL_INJECTION"
	ThreatXSS                     ThreatType = "XSS"
	ThreatCommandInjection        ThreatType = "COMMAND_INJECTION"
	ThreatPathTraversal           ThreatType = "PATH_TRAVERSAL"
	ThreatLDAPInjection           ThreatType = "LDAP_INJECTION"
	ThreatXXE                     ThreatType = "XXE"
	ThreatHeaderInjection         ThreatType = "HEADER_INJECTION"
	ThreatPrototypePollution      ThreatType = "PROTOTYPE_POLLUTION"
	ThreatSSRF                    ThreatType = "SSRF"
	ThreatTemplateInjection       ThreatType = "TEMPLATE_INJECTION"
	ThreatInsecureDeserialization ThreatType = "INSECURE_DESERIALIZATION"
	ThreatNoSQLInjection          ThreatType = "NOSQL_INJECTION"
	ThreatTrafficAnomaly          ThreatType = "TRAFFIC_ANOMALY"
	ThreatBehavioralAnomaly       ThreatType = "BEHAVIORAL_ANOMALY"
	ThreatVulnScanner             ThreatType = "VULNERABILITY_SCANNER"
	ThreatBruteForce              ThreatType = "BRUTE_FORCE"
)

// MaxExcerptLength bounds the input excerpt stored on a finding.
const MaxExcerptLength = 100

// ThreatFinding is an immutable detector result.
//
// Location identifies where the input came from: query.<key>, header.<name>,
// body, body.<field>, path, user_agent or auth. Score is the numeric
// severity used against the incident creation threshold; zero means "derive
// from Severity".
type ThreatFinding struct {
	Type       ThreatType `json:"type"`
	Severity   Severity   `json:"severity"`
	Confidence float64    `json:"confidence"`
	Location   string     `json:"location"`
	Excerpt    string     `json:"excerpt"`
	Timestamp  time.Time  `json:"timestamp"`
	SourceIP   string     `json:"source_ip,omitempty"`
	EventID    string     `json:"event_id,omitempty"`
	Blocked    bool       `json:"blocked,omitempty"`
	Score      float64    `json:"score,omitempty"`
}

// Excerpt truncates input to MaxExcerptLength runes.
func Excerpt(input string) string {
	r := []rune(input)
	if len(r) <= MaxExcerptLength {
		return input
	}
	return string(r[:MaxExcerptLength])
}
