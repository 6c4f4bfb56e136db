// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package models

import "time"

// IncidentStatus is the lifecycle state of an incident.
type IncidentStatus string

const (
	StatusOpen      IncidentStatus = "OPEN"
	StatusEscalated IncidentStatus = "ESCALATED"
	StatusContained IncidentStatus = "CONTAINED"
	StatusClosed    IncidentStatus = "CLOSED"
)

// allowedTransitions lists forward moves only. CLOSED is terminal.
var allowedTransitions = map[IncidentStatus][]IncidentStatus{
	StatusOpen:      {StatusEscalated, StatusContained, StatusClosed},
	StatusContained: {StatusEscalated, StatusClosed},
	StatusEscalated: {StatusClosed},
}

// CanTransition reports whether moving from one status to another is a
// forward move in the incident state machine.
func CanTransition(from, to IncidentStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ActionType is a playbook step.
type ActionType string

const (
	ActionBlockSource     ActionType = "block-source"
	ActionIsolateTarget   ActionType = "isolate-target"
	ActionCollectEvidence ActionType = "collect-evidence"
	ActionNotify          ActionType = "notify"
	ActionOpenTicket      ActionType = "open-ticket"
	ActionEscalate        ActionType = "escalate"
	ActionRunScan         ActionType = "run-scan"
)

// TriggerRef records what caused an incident to be created.
type TriggerRef struct {
	Kind     string     `json:"kind"` // finding, anomaly or correlation
	Type     ThreatType `json:"type"`
	Location string     `json:"location,omitempty"`
	Rule     string     `json:"rule,omitempty"`
	Excerpt  string     `json:"excerpt,omitempty"`
}

// TimelineEntry is one line of an incident's history.
type TimelineEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Success   bool      `json:"success"`
}

// ActionRecord is a containment or response action taken on an incident.
type ActionRecord struct {
	Type      ActionType `json:"type"`
	Target    string     `json:"target,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
}

// MitreMapping is the ATT&CK technique associated with a threat type.
type MitreMapping struct {
	Tactic      string `json:"tactic"`
	TechniqueID string `json:"technique_id"`
	Technique   string `json:"technique"`
}

// NetworkContext is the best-effort network view gathered into evidence.
type NetworkContext struct {
	SourceIP    string   `json:"source_ip"`
	Paths       []string `json:"paths"`
	UserAgents  []string `json:"user_agents"`
	Methods     []string `json:"methods"`
	RequestRate float64  `json:"request_rate"`
}

// SystemSnapshot is process state captured at evidence collection time.
type SystemSnapshot struct {
	Goroutines      int            `json:"goroutines"`
	HeapAllocBytes  uint64         `json:"heap_alloc_bytes"`
	CollectionSizes map[string]int `json:"collection_sizes"`
}

// Evidence is the bundle gathered by the collect-evidence action.
type Evidence struct {
	CollectedAt time.Time       `json:"collected_at"`
	Events      []SecurityEvent `json:"events"`
	Network     NetworkContext  `json:"network"`
	System      SystemSnapshot  `json:"system"`
}

// Incident is the orchestrator's unit of response.
type Incident struct {
	ID            string          `json:"id"`
	Type          ThreatType      `json:"type"`
	Title         string          `json:"title"`
	Severity      Severity        `json:"severity"`
	SeverityScore float64         `json:"severity_score"`
	Status        IncidentStatus  `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	ClosedAt      *time.Time      `json:"closed_at,omitempty"`
	Trigger       TriggerRef      `json:"trigger"`
	SourceIP      string          `json:"source_ip,omitempty"`
	RelatedEvents []string        `json:"related_events"`
	Evidence      *Evidence       `json:"evidence,omitempty"`
	Actions       []ActionRecord  `json:"actions"`
	Timeline      []TimelineEntry `json:"timeline"`
	Playbook      string          `json:"playbook,omitempty"`
	Tags          []string        `json:"tags"`
	Mitre         *MitreMapping   `json:"mitre,omitempty"`
	Resolution    string          `json:"resolution,omitempty"`
	ResolvedBy    string          `json:"resolved_by,omitempty"`
}

// HasTag reports whether the incident carries the given correlation tag.
func (i *Incident) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand to callers outside the orchestrator lock.
func (i *Incident) Clone() *Incident {
	if i == nil {
		return nil
	}
	c := *i
	c.RelatedEvents = append([]string(nil), i.RelatedEvents...)
	c.Actions = append([]ActionRecord(nil), i.Actions...)
	c.Timeline = append([]TimelineEntry(nil), i.Timeline...)
	c.Tags = append([]string(nil), i.Tags...)
	if i.ClosedAt != nil {
		t := *i.ClosedAt
		c.ClosedAt = &t
	}
	if i.Evidence != nil {
		ev := *i.Evidence
		ev.Events = append([]SecurityEvent(nil), i.Evidence.Events...)
		c.Evidence = &ev
	}
	if i.Mitre != nil {
		m := *i.Mitre
		c.Mitre = &m
	}
	return &c
}

// CorrelationRule is static configuration: it matches when the union of
// event types inside the correlation window contains at least MinMatches of
// EventTypes.
type CorrelationRule struct {
	Name       string       `json:"name" koanf:"name"`
	EventTypes []ThreatType `json:"event_types" koanf:"event_types"`
	MinMatches int          `json:"min_matches" koanf:"min_matches"`
	Severity   Severity     `json:"severity" koanf:"severity"`
}

// PlaybookCriteria selects incidents for a playbook. Empty fields match anything.
type PlaybookCriteria struct {
	Severities   []Severity   `json:"severities,omitempty"`
	Types        []ThreatType `json:"types,omitempty"`
	RequiredTags []string     `json:"required_tags,omitempty"`
}

// Playbook is an ordered list of actions selected by criteria.
type Playbook struct {
	Name     string           `json:"name"`
	Criteria PlaybookCriteria `json:"criteria"`
	Actions  []ActionType     `json:"actions"`
}
