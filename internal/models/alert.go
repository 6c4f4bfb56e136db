// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package models

import "time"

// AlertType names the kind of alert delivered to subscribers.
type AlertType string

const (
	AlertThreatDetected       AlertType = "THREAT_DETECTED"
	AlertTrafficAnomaly       AlertType = "TRAFFIC_ANOMALY"
	AlertBehavioralAnomaly    AlertType = "BEHAVIORAL_ANOMALY"
	AlertIncidentCreated      AlertType = "INCIDENT_CREATED"
	AlertIncidentUpdated      AlertType = "INCIDENT_UPDATED"
	AlertIncidentNotification AlertType = "INCIDENT_NOTIFICATION"
	AlertTicketRequested      AlertType = "TICKET_REQUESTED"
	AlertIncidentClosed       AlertType = "INCIDENT_CLOSED"
)

// Alert is the structured value handed to every alert subscriber.
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Severity  Severity  `json:"severity"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	Priority  string    `json:"priority,omitempty"`
}

// PriorityImmediate marks alerts that stakeholders must see without batching.
const PriorityImmediate = "immediate"
