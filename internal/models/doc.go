// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package models defines the data structures shared by every Sentinel component.

Key Components:

  - SecurityEvent: one inbound request as seen by the recorder, backfilled
    with response data once the handler completes
  - ThreatFinding: an immutable detector result with type, severity and location
  - ThreatIndicator: aggregate threat score for a monitored scope (global_traffic)
  - BehavioralProfile: per-source or per-endpoint traffic summary
  - Incident: the orchestrator's unit of response, with timeline, evidence
    and containment actions
  - Alert: the structured value delivered to alert subscribers
  - Stats: the statistics snapshot served by the administration API

The package also holds the error taxonomy (errors.go). Components wrap these
sentinels with fmt.Errorf("...: %w") and callers test them with errors.Is.
*/
package models
