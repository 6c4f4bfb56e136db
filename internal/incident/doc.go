// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package incident creates, correlates and resolves security incidents.

Findings from the recorder, deep scans, traffic analytics and the behavioral
profiler all arrive through Orchestrator.HandleFindings. For each finding:

 1. It is added to every active incident sharing its source address, threat
    type or location.
 2. If it joined no incident and its Score reaches the creation threshold,
    a new incident is opened.
 3. The correlation rules are evaluated over the distinct types seen in the
    correlation window. A match joins the active incident tagged with the
    rule name or opens a new one scored from the rule severity.

New incidents run the first matching playbook. Status only moves forward:

	OPEN -> CONTAINED -> ESCALATED -> CLOSED
	OPEN -> ESCALATED -> CLOSED
	OPEN -> CLOSED

Closed incidents move to a bounded history and, when an Archive is
configured, to BadgerDB.
*/
package incident
