// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package incident

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/threat"
)

var (
	errNoSource  = errors.New("incident has no source address")
	errNoTarget  = errors.New("incident has no target location")
	errNoScanner = errors.New("no scanner configured")
)

// runPlaybook executes pb's actions in order. A failed action is recorded
// and the remaining actions still run. Must be called with mu held.
func (o *Orchestrator) runPlaybook(inc *models.Incident, pb models.Playbook) {
	inc.Playbook = pb.Name
	inc.Timeline = append(inc.Timeline, models.TimelineEntry{
		Timestamp: time.Now(),
		Action:    "playbook_selected",
		Details:   pb.Name,
		Success:   true,
	})

	for _, action := range pb.Actions {
		details, err := o.execute(inc, action)
		now := time.Now()
		rec := models.ActionRecord{Type: action, Target: details, Timestamp: now, Success: err == nil}
		entry := models.TimelineEntry{Timestamp: now, Action: string(action), Details: details, Success: err == nil}
		if err != nil {
			rec.Error = err.Error()
			entry.Details = err.Error()
			o.actionsFailed.Add(1)
			o.log.Warn().Err(err).Str("incident_id", inc.ID).Str("action", string(action)).Msg("playbook action failed")
		}
		inc.Actions = append(inc.Actions, rec)
		inc.Timeline = append(inc.Timeline, entry)
		inc.UpdatedAt = now
		metrics.RecordPlaybookAction(string(action), err == nil)
	}
}

func (o *Orchestrator) execute(inc *models.Incident, action models.ActionType) (string, error) {
	switch action {
	case models.ActionBlockSource:
		if inc.SourceIP == "" || inc.SourceIP == "unknown" {
			return "", errNoSource
		}
		if o.blocker != nil {
			o.blocker.Block(inc.SourceIP)
		}
		return inc.SourceIP, o.contain(inc, "blocked source "+inc.SourceIP)

	case models.ActionIsolateTarget:
		if inc.Trigger.Location == "" {
			return "", errNoTarget
		}
		return inc.Trigger.Location, o.contain(inc, "isolated "+inc.Trigger.Location)

	case models.ActionCollectEvidence:
		inc.Evidence = o.collectEvidence(inc)
		return fmt.Sprintf("%d events collected", len(inc.Evidence.Events)), nil

	case models.ActionNotify:
		o.queue(models.Alert{
			Type:     models.AlertIncidentNotification,
			Severity: inc.Severity,
			Payload:  inc.Clone(),
			Priority: notifyPriority(inc.Severity),
		})
		return "stakeholders notified", nil

	case models.ActionOpenTicket:
		o.queue(models.Alert{Type: models.AlertTicketRequested, Severity: inc.Severity, Payload: inc.Clone()})
		return "ticket requested", nil

	case models.ActionEscalate:
		return "manual review required", o.transition(inc, models.StatusEscalated, "escalated by playbook "+inc.Playbook)

	case models.ActionRunScan:
		return o.runScan(inc)

	default:
		return "", fmt.Errorf("unknown action %q", action)
	}
}

// contain records containment. Only OPEN incidents change status; an
// already escalated incident keeps its status.
func (o *Orchestrator) contain(inc *models.Incident, details string) error {
	if inc.Status != models.StatusOpen {
		return nil
	}
	return o.transition(inc, models.StatusContained, details)
}

func notifyPriority(sev models.Severity) string {
	if sev.AtLeast(models.SeverityHigh) {
		return models.PriorityImmediate
	}
	return ""
}

// runScan rescans the incident's events with the full detector set. Findings
// not already seen in the correlation window are forwarded once mu is
// released.
func (o *Orchestrator) runScan(inc *models.Incident) (string, error) {
	if o.scanner == nil {
		return "", errNoScanner
	}
	events := o.incidentEvents(inc)

	types := make(map[models.ThreatType]int)
	forwarded := 0
	for i := range events {
		evt := &events[i]
		for _, f := range o.scanner.Scan(threat.ScanRequest{
			EventID:  evt.ID,
			SourceIP: evt.SourceIP,
			Path:     evt.Path,
			Query:    evt.Query,
			Headers:  evt.Headers,
		}) {
			types[f.Type]++
			if _, seen := o.recent.Get(recentKey(f.EventID, f.Type, f.Location)); seen {
				continue
			}
			if f.Timestamp.IsZero() {
				f.Timestamp = evt.Timestamp
			}
			o.found = append(o.found, f)
			forwarded++
		}
	}

	total := 0
	names := make([]string, 0, len(types))
	for t, n := range types {
		total += n
		names = append(names, fmt.Sprintf("%s=%d", t, n))
	}
	sort.Strings(names)
	return fmt.Sprintf("rescanned %d events, %d findings %v, %d forwarded", len(events), total, names, forwarded), nil
}

// incidentEvents resolves inc's related events. Anomaly incidents relate
// only synthetic finding IDs, so when none resolve, the latest stored events
// from inc's source inside the correlation window stand in. Incidents
// without a source take the latest events of the whole window.
func (o *Orchestrator) incidentEvents(inc *models.Incident) []models.SecurityEvent {
	if o.events == nil {
		return nil
	}
	if related := o.events.GetMany(inc.RelatedEvents); len(related) > 0 {
		return related
	}

	anySource := inc.SourceIP == "" || inc.SourceIP == "unknown"
	var out []models.SecurityEvent
	for _, evt := range o.events.Since(inc.CreatedAt.Add(-o.cfg.CorrelationWindow)) {
		if anySource || evt.SourceIP == inc.SourceIP {
			out = append(out, evt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if len(out) > maxIncidentEvents {
		out = out[len(out)-maxIncidentEvents:]
	}
	return out
}

func (o *Orchestrator) collectEvidence(inc *models.Incident) *models.Evidence {
	now := time.Now()
	ev := &models.Evidence{
		CollectedAt: now,
		Events:      []models.SecurityEvent{},
		Network:     models.NetworkContext{SourceIP: inc.SourceIP},
	}
	if o.events != nil {
		if related := o.incidentEvents(inc); len(related) > 0 {
			ev.Events = related
		}
		ev.Network = networkContext(inc.SourceIP, ev.Events, o.events.Since(now.Add(-time.Minute)))
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	ev.System = models.SystemSnapshot{
		Goroutines:      runtime.NumGoroutine(),
		HeapAllocBytes:  mem.HeapAlloc,
		CollectionSizes: map[string]int{},
	}
	if o.sizes != nil {
		ev.System.CollectionSizes = o.sizes()
	}
	return ev
}

// networkContext summarizes the related events and the source's request
// rate over the last minute.
func networkContext(sourceIP string, related, lastMinute []models.SecurityEvent) models.NetworkContext {
	paths := map[string]struct{}{}
	agents := map[string]struct{}{}
	methods := map[string]struct{}{}
	for i := range related {
		paths[related[i].Path] = struct{}{}
		agents[related[i].UserAgent] = struct{}{}
		methods[related[i].Method] = struct{}{}
	}

	n := 0
	if sourceIP != "" {
		for i := range lastMinute {
			if lastMinute[i].SourceIP == sourceIP {
				n++
			}
		}
	}
	return models.NetworkContext{
		SourceIP:    sourceIP,
		Paths:       sortedSet(paths),
		UserAgents:  sortedSet(agents),
		Methods:     sortedSet(methods),
		RequestRate: float64(n) / 60,
	}
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
