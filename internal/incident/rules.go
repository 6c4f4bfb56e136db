// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package incident

import (
	"slices"

	"github.com/tomtom215/sentinel/internal/models"
)

// DefaultCorrelationRules returns the built-in correlation rules.
func DefaultCorrelationRules() []models.CorrelationRule {
	return []models.CorrelationRule{
		{
			Name:       "multi_vector_attack",
			EventTypes: []models.ThreatType{models.ThreatSQLInjection, models.ThreatXSS, models.ThreatCommandInjection, models.ThreatPathTraversal},
			MinMatches: 2,
			Severity:   models.SeverityHigh,
		},
		{
			Name:       "reconnaissance_then_exploit",
			EventTypes: []models.ThreatType{models.ThreatBehavioralAnomaly, models.ThreatTrafficAnomaly, models.ThreatVulnScanner, models.ThreatSQLInjection, models.ThreatSSRF},
			MinMatches: 2,
			Severity:   models.SeverityHigh,
		},
		{
			Name:       "injection_campaign",
			EventTypes: []models.ThreatType{models.ThreatSQLInjection, models.ThreatNoSQLInjection, models.ThreatLDAPInjection, models.ThreatTemplateInjection},
			MinMatches: 3,
			Severity:   models.SeverityCritical,
		},
		{
			// A profile deviation alone scores below the creation threshold;
			// this opens a MEDIUM incident for the behavioral_review playbook.
			Name:       "behavioral_deviation",
			EventTypes: []models.ThreatType{models.ThreatBehavioralAnomaly},
			MinMatches: 1,
			Severity:   models.SeverityMedium,
		},
	}
}

// DefaultPlaybooks returns the built-in playbooks in match order.
func DefaultPlaybooks() []models.Playbook {
	return []models.Playbook{
		{
			Name:     "critical_injection_response",
			Criteria: models.PlaybookCriteria{Severities: []models.Severity{models.SeverityCritical}},
			Actions: []models.ActionType{
				models.ActionBlockSource,
				models.ActionCollectEvidence,
				models.ActionNotify,
				models.ActionEscalate,
				models.ActionOpenTicket,
			},
		},
		{
			Name:     "traffic_anomaly_response",
			Criteria: models.PlaybookCriteria{Types: []models.ThreatType{models.ThreatTrafficAnomaly}},
			Actions:  []models.ActionType{models.ActionCollectEvidence, models.ActionNotify, models.ActionRunScan},
		},
		{
			Name:     "high_severity_default",
			Criteria: models.PlaybookCriteria{Severities: []models.Severity{models.SeverityHigh}},
			Actions:  []models.ActionType{models.ActionBlockSource, models.ActionCollectEvidence, models.ActionNotify},
		},
		{
			Name:     "behavioral_review",
			Criteria: models.PlaybookCriteria{Types: []models.ThreatType{models.ThreatBehavioralAnomaly}},
			Actions:  []models.ActionType{models.ActionCollectEvidence, models.ActionOpenTicket},
		},
	}
}

// ruleMatches reports whether the distinct types in window cover at least
// rule.MinMatches of the rule's event types.
func ruleMatches(rule models.CorrelationRule, types map[models.ThreatType]struct{}) bool {
	if rule.MinMatches <= 0 {
		return false
	}
	n := 0
	for _, t := range rule.EventTypes {
		if _, ok := types[t]; ok {
			n++
		}
	}
	return n >= rule.MinMatches
}

// selectPlaybook returns the first playbook whose criteria match inc.
func selectPlaybook(playbooks []models.Playbook, inc *models.Incident) (models.Playbook, bool) {
	for _, pb := range playbooks {
		if criteriaMatch(pb.Criteria, inc) {
			return pb, true
		}
	}
	return models.Playbook{}, false
}

func criteriaMatch(c models.PlaybookCriteria, inc *models.Incident) bool {
	if len(c.Severities) > 0 && !slices.Contains(c.Severities, inc.Severity) {
		return false
	}
	if len(c.Types) > 0 && !slices.Contains(c.Types, inc.Type) {
		return false
	}
	for _, tag := range c.RequiredTags {
		if !inc.HasTag(tag) {
			return false
		}
	}
	return true
}
