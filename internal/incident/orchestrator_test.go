// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package incident

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/threat"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

type fakeEvents struct {
	byID map[string]models.SecurityEvent
}

func newFakeEvents(events ...models.SecurityEvent) *fakeEvents {
	f := &fakeEvents{byID: map[string]models.SecurityEvent{}}
	for _, e := range events {
		f.byID[e.ID] = e
	}
	return f
}

func (f *fakeEvents) Get(id string) (models.SecurityEvent, bool) {
	e, ok := f.byID[id]
	return e, ok
}

func (f *fakeEvents) GetMany(ids []string) []models.SecurityEvent {
	var out []models.SecurityEvent
	for _, id := range ids {
		if e, ok := f.byID[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeEvents) Since(t time.Time) []models.SecurityEvent {
	var out []models.SecurityEvent
	for _, e := range f.byID {
		if !e.Timestamp.Before(t) {
			out = append(out, e)
		}
	}
	return out
}

type recordingAlerts struct {
	mu  sync.Mutex
	got []models.Alert
}

func (r *recordingAlerts) Emit(_ context.Context, a models.Alert) {
	r.mu.Lock()
	r.got = append(r.got, a)
	r.mu.Unlock()
}

func (r *recordingAlerts) ofType(t models.AlertType) []models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Alert
	for _, a := range r.got {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

type fakeBlocker struct{ blocked []string }

func (b *fakeBlocker) Block(source string) { b.blocked = append(b.blocked, source) }

func sqli(eventID, ip string, blocked bool) models.ThreatFinding {
	return models.ThreatFinding{
		Type:       models.ThreatSQLInjection,
		Severity:   models.SeverityCritical,
		Confidence: 0.8,
		Location:   "query.id",
		Excerpt:    "1 UNION SELECT password FROM users",
		Timestamp:  time.Now(),
		SourceIP:   ip,
		EventID:    eventID,
		Blocked:    blocked,
	}
}

func scored(t models.ThreatType, ip, loc string, score float64) models.ThreatFinding {
	return models.ThreatFinding{Type: t, Severity: models.SeverityHigh, Location: loc, SourceIP: ip, Timestamp: time.Now(), Score: score}
}

func noRules() Config {
	cfg := DefaultConfig()
	cfg.Rules = []models.CorrelationRule{}
	return cfg
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		f     models.ThreatFinding
		level models.Severity
		want  float64
	}{
		{"critical sqli on medium event", sqli("", "", false), models.SeverityMedium, 70},
		{"critical sqli on critical event", sqli("", "", false), models.SeverityCritical, 80},
		{"blocked critical sqli", sqli("", "", true), models.SeverityCritical, 100},
		{"xss on low event", models.ThreatFinding{Type: models.ThreatXSS, Severity: models.SeverityHigh}, models.SeverityLow, 36},
		{"blocked traversal", models.ThreatFinding{Type: models.ThreatPathTraversal, Severity: models.SeverityHigh, Blocked: true}, models.SeverityLow, 56},
		{"explicit anomaly score", scored(models.ThreatBehavioralAnomaly, "", "", 50), models.SeverityCritical, 50},
		{"explicit score clamped", scored(models.ThreatTrafficAnomaly, "", "", 140), "", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.f, tt.level); got != tt.want {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleFindings_HighSeverityIsContainedNotEscalated(t *testing.T) {
	events := newFakeEvents(models.SecurityEvent{
		ID: "evt-1", SourceIP: "203.0.113.9", Method: "GET", Path: "/products", UserAgent: "curl/8",
		Timestamp: time.Now(), ThreatLevel: models.SeverityCritical,
	})
	alerts := &recordingAlerts{}
	blocker := &fakeBlocker{}
	o := New(DefaultConfig(), events, WithAlerts(alerts), WithBlocker(blocker))

	o.HandleFindings(context.Background(), []models.ThreatFinding{sqli("evt-1", "203.0.113.9", false)})

	active := o.Active()
	if len(active) != 1 {
		t.Fatalf("active incidents = %d, want 1", len(active))
	}
	inc := active[0]
	if inc.Severity != models.SeverityHigh || inc.SeverityScore != 80 {
		t.Errorf("severity = %s (%v), want HIGH (80)", inc.Severity, inc.SeverityScore)
	}
	if inc.Playbook != "high_severity_default" {
		t.Errorf("playbook = %q", inc.Playbook)
	}
	if inc.Status != models.StatusContained {
		t.Errorf("status = %s, want CONTAINED", inc.Status)
	}
	if len(blocker.blocked) != 1 || blocker.blocked[0] != "203.0.113.9" {
		t.Errorf("blocked = %v", blocker.blocked)
	}
	if inc.Evidence == nil || len(inc.Evidence.Events) != 1 || inc.Evidence.Network.Paths[0] != "/products" {
		t.Errorf("evidence = %+v", inc.Evidence)
	}
	if inc.Mitre == nil || inc.Mitre.TechniqueID != "T1190" {
		t.Errorf("mitre = %+v", inc.Mitre)
	}
	if len(inc.RelatedEvents) != 1 || inc.RelatedEvents[0] != "evt-1" {
		t.Errorf("related = %v", inc.RelatedEvents)
	}

	created := alerts.ofType(models.AlertIncidentCreated)
	if len(created) != 1 || created[0].Priority != models.PriorityImmediate {
		t.Errorf("INCIDENT_CREATED alerts = %+v, want one immediate", created)
	}
	if n := len(alerts.ofType(models.AlertIncidentNotification)); n != 1 {
		t.Errorf("notifications = %d, want 1", n)
	}
}

func TestHandleFindings_CriticalPlaybookEscalates(t *testing.T) {
	alerts := &recordingAlerts{}
	o := New(DefaultConfig(), nil, WithAlerts(alerts))

	f := sqli("", "198.51.100.4", true)
	o.HandleFindings(context.Background(), []models.ThreatFinding{f})

	active := o.Active()
	if len(active) != 1 {
		t.Fatalf("active incidents = %d, want 1", len(active))
	}
	inc := active[0]
	if inc.Severity != models.SeverityCritical || inc.Playbook != "critical_injection_response" {
		t.Fatalf("incident = %s via %q", inc.Severity, inc.Playbook)
	}
	if inc.Status != models.StatusEscalated {
		t.Errorf("status = %s, want ESCALATED", inc.Status)
	}

	var actions []models.ActionType
	for _, a := range inc.Actions {
		actions = append(actions, a.Type)
		if !a.Success {
			t.Errorf("action %s failed: %s", a.Type, a.Error)
		}
	}
	want := []models.ActionType{models.ActionBlockSource, models.ActionCollectEvidence, models.ActionNotify, models.ActionEscalate, models.ActionOpenTicket}
	if len(actions) != len(want) {
		t.Fatalf("actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("actions[%d] = %s, want %s", i, actions[i], want[i])
		}
	}
	if n := len(alerts.ofType(models.AlertTicketRequested)); n != 1 {
		t.Errorf("ticket alerts = %d, want 1", n)
	}
	if len(inc.RelatedEvents) != 1 {
		t.Errorf("related events = %v, want one synthetic reference", inc.RelatedEvents)
	}
}

func TestHandleFindings_FailedActionDoesNotAbort(t *testing.T) {
	o := New(DefaultConfig(), nil)
	o.HandleFindings(context.Background(), []models.ThreatFinding{scored(models.ThreatTrafficAnomaly, "", models.GlobalTrafficKey, 75)})

	inc := o.Active()[0]
	if inc.Playbook != "traffic_anomaly_response" {
		t.Fatalf("playbook = %q", inc.Playbook)
	}
	if len(inc.Actions) != 3 {
		t.Fatalf("actions = %+v", inc.Actions)
	}
	scan := inc.Actions[2]
	if scan.Type != models.ActionRunScan || scan.Success || scan.Error == "" {
		t.Errorf("run-scan without scanner = %+v, want failure", scan)
	}
	if inc.Status != models.StatusOpen {
		t.Errorf("status = %s, want OPEN", inc.Status)
	}
	if o.Stats().ActionsFailed != 1 {
		t.Errorf("ActionsFailed = %d", o.Stats().ActionsFailed)
	}
}

func byType(incs []*models.Incident, t models.ThreatType) *models.Incident {
	for _, inc := range incs {
		if inc.Type == t {
			return inc
		}
	}
	return nil
}

func actionOf(inc *models.Incident, a models.ActionType) models.ActionRecord {
	for _, rec := range inc.Actions {
		if rec.Type == a {
			return rec
		}
	}
	return models.ActionRecord{}
}

type collectedFindings struct {
	mu  sync.Mutex
	got []models.ThreatFinding
}

func (c *collectedFindings) handle(_ context.Context, findings []models.ThreatFinding) {
	c.mu.Lock()
	c.got = append(c.got, findings...)
	c.mu.Unlock()
}

func TestHandleFindings_RunScanUsesDispatcher(t *testing.T) {
	events := newFakeEvents(models.SecurityEvent{
		ID: "evt-9", SourceIP: "192.0.2.1", Path: "/search",
		Query: map[string][]string{"q": {"1' UNION SELECT * FROM users--"}}, Timestamp: time.Now(),
	})
	sink := &collectedFindings{}
	o := New(noRules(), events, WithScanner(threat.NewDispatcher()), WithRescanSink(sink.handle))

	f := scored(models.ThreatTrafficAnomaly, "", models.GlobalTrafficKey, 75)
	f.EventID = "evt-9"
	o.HandleFindings(context.Background(), []models.ThreatFinding{f})

	inc := byType(o.Active(), models.ThreatTrafficAnomaly)
	if inc == nil {
		t.Fatal("no traffic anomaly incident")
	}
	scan := actionOf(inc, models.ActionRunScan)
	if !scan.Success || !strings.Contains(scan.Target, "SQL_INJECTION") {
		t.Errorf("run-scan = %+v", scan)
	}
	if len(sink.got) == 0 || sink.got[0].Type != models.ThreatSQLInjection || sink.got[0].EventID != "evt-9" {
		t.Errorf("forwarded findings = %+v", sink.got)
	}
}

// Analytics anomalies carry no event ID, so the incident relates only a
// synthetic finding ID. Evidence and rescans must still reach the stored
// events of the window.
func TestTrafficAnomaly_ActionsFallBackToStoredEvents(t *testing.T) {
	now := time.Now()
	events := newFakeEvents(
		models.SecurityEvent{ID: "e1", SourceIP: "198.51.100.7", Method: "GET", Path: "/search",
			Query: map[string][]string{"q": {"1 UNION SELECT password FROM users"}}, Timestamp: now.Add(-10 * time.Second)},
		models.SecurityEvent{ID: "e2", SourceIP: "198.51.100.8", Method: "GET", Path: "/", Timestamp: now.Add(-5 * time.Second)},
		models.SecurityEvent{ID: "old", SourceIP: "198.51.100.7", Method: "GET", Path: "/stale", Timestamp: now.Add(-time.Hour)},
	)

	tests := []struct {
		name       string
		sourceIP   string
		wantEvents int
	}{
		{"global anomaly uses the whole window", "", 2},
		{"sourced anomaly uses its source", "198.51.100.7", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &collectedFindings{}
			o := New(noRules(), events, WithScanner(threat.NewDispatcher()), WithRescanSink(sink.handle))
			o.HandleFindings(context.Background(), []models.ThreatFinding{
				scored(models.ThreatTrafficAnomaly, tt.sourceIP, models.GlobalTrafficKey, 75),
			})

			inc := byType(o.Active(), models.ThreatTrafficAnomaly)
			if inc == nil {
				t.Fatal("no traffic anomaly incident")
			}
			if inc.Evidence == nil || len(inc.Evidence.Events) != tt.wantEvents {
				t.Fatalf("evidence = %+v, want %d events", inc.Evidence, tt.wantEvents)
			}
			var sqlInE1 bool
			for _, f := range sink.got {
				if f.EventID != "e1" {
					t.Errorf("forwarded finding for clean event %s", f.EventID)
				}
				sqlInE1 = sqlInE1 || f.Type == models.ThreatSQLInjection
			}
			if !sqlInE1 {
				t.Errorf("forwarded findings = %+v, want the SQL injection in e1", sink.got)
			}
		})
	}
}

func TestRunScan_ForwardsIntoOrchestratorByDefault(t *testing.T) {
	events := newFakeEvents(models.SecurityEvent{
		ID: "e1", SourceIP: "198.51.100.7", Path: "/search",
		Query: map[string][]string{"q": {"1 UNION SELECT password FROM users"}}, Timestamp: time.Now(),
	})
	o := New(noRules(), events, WithScanner(threat.NewDispatcher()))
	o.HandleFindings(context.Background(), []models.ThreatFinding{
		scored(models.ThreatTrafficAnomaly, "", models.GlobalTrafficKey, 75),
	})

	if byType(o.Active(), models.ThreatSQLInjection) == nil {
		t.Errorf("rescan finding did not open an incident: %d active", len(o.Active()))
	}
}

func TestRunScan_SkipsFindingsAlreadySeen(t *testing.T) {
	events := newFakeEvents(models.SecurityEvent{
		ID: "e1", SourceIP: "198.51.100.7", Path: "/search",
		Query: map[string][]string{"q": {"1 UNION SELECT password FROM users"}}, Timestamp: time.Now(),
	})
	sink := &collectedFindings{}
	o := New(noRules(), events, WithScanner(threat.NewDispatcher()), WithRescanSink(sink.handle))
	ctx := context.Background()

	seen := threat.NewDispatcher().Scan(threat.ScanRequest{
		EventID: "e1", SourceIP: "198.51.100.7", Path: "/search",
		Query: map[string][]string{"q": {"1 UNION SELECT password FROM users"}},
	})
	if len(seen) == 0 {
		t.Fatal("dispatcher found nothing in e1")
	}
	o.HandleFindings(ctx, seen)
	o.HandleFindings(ctx, []models.ThreatFinding{scored(models.ThreatTrafficAnomaly, "", models.GlobalTrafficKey, 75)})

	if len(sink.got) != 0 {
		t.Errorf("already seen findings forwarded again: %+v", sink.got)
	}
}

func TestBehavioralDeviation_RunsReviewPlaybook(t *testing.T) {
	o := New(DefaultConfig(), nil)
	o.HandleFindings(context.Background(), []models.ThreatFinding{{
		Type: models.ThreatBehavioralAnomaly, Severity: models.SeverityMedium, Score: 50,
		Location: "ip:203.0.113.9", SourceIP: "203.0.113.9", Timestamp: time.Now(),
	}})

	active := o.Active()
	if len(active) != 1 {
		t.Fatalf("active incidents = %d, want 1", len(active))
	}
	inc := active[0]
	if inc.Playbook != "behavioral_review" || inc.Severity != models.SeverityMedium || !inc.HasTag("behavioral_deviation") {
		t.Errorf("playbook = %q severity = %s tags = %v", inc.Playbook, inc.Severity, inc.Tags)
	}
	if rec := actionOf(inc, models.ActionOpenTicket); !rec.Success {
		t.Errorf("open-ticket = %+v", rec)
	}
}

func TestHandleFindings_BelowThresholdAndAppend(t *testing.T) {
	o := New(noRules(), nil)
	ctx := context.Background()

	o.HandleFindings(ctx, []models.ThreatFinding{{Type: models.ThreatXSS, Severity: models.SeverityHigh, Location: "query.q", SourceIP: "10.0.0.1"}})
	if n := len(o.Active()); n != 0 {
		t.Fatalf("XSS below threshold created %d incidents", n)
	}

	o.HandleFindings(ctx, []models.ThreatFinding{sqli("e1", "10.0.0.1", true)})
	o.HandleFindings(ctx, []models.ThreatFinding{
		{Type: models.ThreatXSS, Severity: models.SeverityHigh, Location: "header.referer", SourceIP: "10.0.0.1", EventID: "e2"},
		sqli("e3", "10.9.9.9", true),
	})

	active := o.Active()
	if len(active) != 1 {
		t.Fatalf("active incidents = %d, want 1", len(active))
	}
	got := strings.Join(active[0].RelatedEvents, ",")
	if got != "e1,e2,e3" {
		t.Errorf("related events = %s, want e1,e2,e3", got)
	}
	if o.Stats().Created != 1 {
		t.Errorf("created = %d", o.Stats().Created)
	}
}

func TestHandleFindings_CorrelationRule(t *testing.T) {
	o := New(DefaultConfig(), nil)
	ctx := context.Background()

	o.HandleFindings(ctx, []models.ThreatFinding{{Type: models.ThreatXSS, Severity: models.SeverityHigh, Location: "query.a", SourceIP: "10.0.0.1", EventID: "a"}})
	o.HandleFindings(ctx, []models.ThreatFinding{{Type: models.ThreatPathTraversal, Severity: models.SeverityHigh, Location: "path", SourceIP: "10.0.0.2", EventID: "b"}})

	active := o.Active()
	if len(active) != 1 {
		t.Fatalf("active incidents = %d, want 1 correlated", len(active))
	}
	inc := active[0]
	if !inc.HasTag("multi_vector_attack") || inc.Trigger.Kind != "correlation" {
		t.Errorf("incident tags = %v trigger = %+v", inc.Tags, inc.Trigger)
	}
	if inc.Severity != models.SeverityHigh {
		t.Errorf("severity = %s, want HIGH", inc.Severity)
	}
	if len(inc.RelatedEvents) != 2 {
		t.Errorf("related = %v, want both window events", inc.RelatedEvents)
	}

	o.HandleFindings(ctx, []models.ThreatFinding{{Type: models.ThreatXSS, Severity: models.SeverityHigh, Location: "query.c", SourceIP: "10.0.0.3", EventID: "c"}})
	active = o.Active()
	if len(active) != 1 || len(active[0].RelatedEvents) != 3 {
		t.Errorf("third event was not appended to the tagged incident: %d incidents, related %v", len(active), active[0].RelatedEvents)
	}
}

func TestAutoClose(t *testing.T) {
	cfg := noRules()
	cfg.Playbooks = []models.Playbook{}
	alerts := &recordingAlerts{}
	o := New(cfg, nil, WithAlerts(alerts))
	ctx := context.Background()

	o.HandleFindings(ctx, []models.ThreatFinding{scored(models.ThreatTrafficAnomaly, "", models.GlobalTrafficKey, 75)})
	if n := o.AutoClose(ctx, time.Now()); n != 0 {
		t.Fatalf("fresh incident auto-closed: %d", n)
	}

	if n := o.AutoClose(ctx, time.Now().Add(25*time.Hour)); n != 1 {
		t.Fatalf("AutoClose = %d, want 1", n)
	}
	if len(o.Active()) != 0 {
		t.Error("auto-closed incident still active")
	}
	hist := o.History(10)
	if len(hist) != 1 || hist[0].Status != models.StatusClosed {
		t.Fatalf("history = %+v", hist)
	}
	if hist[0].Resolution != "Automatically closed after 24h0m0s of inactivity" || hist[0].ResolvedBy != "system" {
		t.Errorf("resolution = %q by %q", hist[0].Resolution, hist[0].ResolvedBy)
	}
	if n := len(alerts.ofType(models.AlertIncidentClosed)); n != 1 {
		t.Errorf("closed alerts = %d", n)
	}
}

func TestAutoClose_SkipsNonOpen(t *testing.T) {
	o := New(DefaultConfig(), nil)
	o.HandleFindings(context.Background(), []models.ThreatFinding{sqli("e", "192.0.2.50", false)})
	if n := o.AutoClose(context.Background(), time.Now().Add(48*time.Hour)); n != 0 {
		t.Errorf("AutoClose closed %d contained incidents", n)
	}
}

func TestResolveRoundTrip(t *testing.T) {
	o := New(noRules(), nil)
	ctx := context.Background()
	o.HandleFindings(ctx, []models.ThreatFinding{sqli("e1", "192.0.2.7", false)})
	id := o.Active()[0].ID

	inc, err := o.Resolve(ctx, id, "false positive from scanner", "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if inc.Status != models.StatusClosed || inc.ClosedAt == nil || inc.ResolvedBy != "alice" {
		t.Errorf("resolved incident = %+v", inc)
	}
	if len(o.Active()) != 0 {
		t.Error("resolved incident still active")
	}
	hist := o.History(1)
	if len(hist) != 1 || hist[0].ID != id {
		t.Errorf("history = %+v", hist)
	}
	if got, err := o.Get(id); err != nil || got.Status != models.StatusClosed {
		t.Errorf("Get = %+v, %v", got, err)
	}

	if _, err := o.Resolve(ctx, id, "again", ""); !errors.Is(err, models.ErrIncidentNotFound) {
		t.Errorf("second Resolve = %v, want ErrIncidentNotFound", err)
	}
	if _, err := o.Resolve(ctx, "inc_missing", "", ""); models.Code(err) != models.CodeIncidentNotFound {
		t.Errorf("unknown Resolve code = %q", models.Code(err))
	}
}

func TestEscalate(t *testing.T) {
	cfg := noRules()
	cfg.Playbooks = []models.Playbook{}
	o := New(cfg, nil)
	ctx := context.Background()
	o.HandleFindings(ctx, []models.ThreatFinding{sqli("e1", "192.0.2.8", false)})
	id := o.Active()[0].ID

	inc, err := o.Escalate(ctx, id, "")
	if err != nil || inc.Status != models.StatusEscalated {
		t.Fatalf("Escalate = %+v, %v", inc, err)
	}
	if _, err := o.Escalate(ctx, id, ""); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("second Escalate = %v, want ErrInvalidTransition", err)
	}
}

func TestBoundedActiveAndHistoryLimits(t *testing.T) {
	cfg := noRules()
	cfg.Playbooks = []models.Playbook{}
	cfg.MaxActive = 2
	o := New(cfg, nil)
	ctx := context.Background()

	o.HandleFindings(ctx, []models.ThreatFinding{scored(models.ThreatTrafficAnomaly, "", "global_traffic", 75)})
	o.HandleFindings(ctx, []models.ThreatFinding{scored(models.ThreatSSRF, "192.0.2.1", "body.url", 75)})
	o.HandleFindings(ctx, []models.ThreatFinding{scored(models.ThreatXXE, "192.0.2.2", "body", 75)})

	if n := o.ActiveLen(); n != 2 {
		t.Errorf("active = %d, want 2", n)
	}
	hist := o.History(10)
	if len(hist) != 1 || hist[0].Type != models.ThreatTrafficAnomaly {
		t.Errorf("oldest incident was not moved to history: %+v", hist)
	}

	if n := o.TrimHistory(0); n != 1 || o.HistoryLen() != 0 {
		t.Errorf("TrimHistory = %d, len %d", n, o.HistoryLen())
	}
	if n := o.TrimActive(ctx, 1); n != 1 || o.ActiveLen() != 1 {
		t.Errorf("TrimActive = %d, len %d", n, o.ActiveLen())
	}
}

func TestHistoryClampsLimit(t *testing.T) {
	cfg := noRules()
	cfg.Playbooks = []models.Playbook{}
	o := New(cfg, nil)
	ctx := context.Background()
	for _, ip := range []string{"192.0.2.1", "192.0.2.2", "192.0.2.3"} {
		o.HandleFindings(ctx, []models.ThreatFinding{scored(models.ThreatSSRF, ip, "body."+ip, 75)})
	}
	// All three share a type, so only the first opened an incident.
	inc := o.Active()[0]
	if _, err := o.Resolve(ctx, inc.ID, "done", ""); err != nil {
		t.Fatal(err)
	}

	if n := len(o.History(0)); n != 1 {
		t.Errorf("History(0) = %d entries, want 1", n)
	}
	if n := len(o.History(5000)); n != 1 {
		t.Errorf("History(5000) = %d entries, want 1", n)
	}
}

func TestArchive(t *testing.T) {
	archive, err := OpenBadgerArchive("")
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer archive.Close()

	cfg := noRules()
	cfg.Playbooks = []models.Playbook{}
	cfg.MaxHistory = 1
	o := New(cfg, nil, WithArchive(archive))
	ctx := context.Background()

	var ids []string
	for _, tt := range []models.ThreatType{models.ThreatSSRF, models.ThreatXXE} {
		o.HandleFindings(ctx, []models.ThreatFinding{scored(tt, "", "", 75)})
		id := o.Active()[0].ID
		ids = append(ids, id)
		if _, err := o.Resolve(ctx, id, "handled", "bob"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(time.Millisecond)
	}

	if o.HistoryLen() != 1 {
		t.Fatalf("in-memory history = %d, want 1", o.HistoryLen())
	}
	hist := o.History(5)
	if len(hist) != 2 || hist[0].ID != ids[1] || hist[1].ID != ids[0] {
		t.Fatalf("history with archive = %v", hist)
	}

	got, err := o.Get(ids[0])
	if err != nil || got.ResolvedBy != "bob" {
		t.Errorf("Get archived = %+v, %v", got, err)
	}
	if _, err := archive.Get("inc_missing"); !errors.Is(err, models.ErrIncidentNotFound) {
		t.Errorf("archive Get missing = %v", err)
	}
}
