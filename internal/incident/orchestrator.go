// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package incident

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sentinel/internal/cache"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/secutil"
	"github.com/tomtom215/sentinel/internal/threat"
)

// History query bounds.
const (
	MinHistoryLimit = 1
	MaxHistoryLimit = 1000
)

// maxRecent bounds the correlation window buffer regardless of its duration.
const maxRecent = 10000

// maxIncidentEvents bounds the events one evidence or scan action reads when
// it falls back to the event store.
const maxIncidentEvents = 100

// EventLookup resolves recorded events.
type EventLookup interface {
	Get(id string) (models.SecurityEvent, bool)
	GetMany(ids []string) []models.SecurityEvent
	Since(t time.Time) []models.SecurityEvent
}

// AlertEmitter delivers alerts.
type AlertEmitter interface {
	Emit(ctx context.Context, a models.Alert)
}

// Blocker enforces block-source containment.
type Blocker interface {
	Block(source string)
}

// Scanner rescans requests for the run-scan action.
type Scanner interface {
	Scan(req threat.ScanRequest) []models.ThreatFinding
}

// Config configures the Orchestrator.
type Config struct {
	CreationThreshold float64
	CorrelationWindow time.Duration
	AutoCloseAfter    time.Duration
	AutoCloseInterval time.Duration
	MaxActive         int
	MaxHistory        int
	Rules             []models.CorrelationRule
	Playbooks         []models.Playbook
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		CreationThreshold: 70,
		CorrelationWindow: 5 * time.Minute,
		AutoCloseAfter:    24 * time.Hour,
		AutoCloseInterval: time.Hour,
		MaxActive:         500,
		MaxHistory:        1000,
		Rules:             DefaultCorrelationRules(),
		Playbooks:         DefaultPlaybooks(),
	}
}

// recentEvent is one finding inside the correlation window.
type recentEvent struct {
	ID        string
	Type      models.ThreatType
	SourceIP  string
	Location  string
	Timestamp time.Time
}

// Stats counts orchestrator activity.
type Stats struct {
	Created       int64 `json:"created"`
	Closed        int64 `json:"closed"`
	AutoClosed    int64 `json:"auto_closed"`
	Correlated    int64 `json:"correlated"`
	ActionsFailed int64 `json:"actions_failed"`
	Active        int   `json:"active"`
	History       int   `json:"history"`
}

// Orchestrator turns findings into incidents and drives their lifecycle.
//
// All incident mutation happens under mu. Alerts produced while mu is held
// are queued and emitted after it is released.
type Orchestrator struct {
	cfg     Config
	events  EventLookup
	alerts  AlertEmitter
	blocker Blocker
	scanner Scanner
	archive Archive
	sizes   func() map[string]int
	rescans func(ctx context.Context, findings []models.ThreatFinding)
	log     zerolog.Logger

	mu      sync.Mutex
	active  *cache.TimedStore[*models.Incident]
	history *cache.TimedStore[*models.Incident]
	recent  *cache.TimedStore[recentEvent]
	pending []models.Alert
	found   []models.ThreatFinding

	created       atomic.Int64
	closed        atomic.Int64
	autoClosed    atomic.Int64
	correlated    atomic.Int64
	actionsFailed atomic.Int64
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithAlerts sets the alert emitter.
func WithAlerts(a AlertEmitter) Option { return func(o *Orchestrator) { o.alerts = a } }

// WithBlocker enforces block-source actions through b.
func WithBlocker(b Blocker) Option { return func(o *Orchestrator) { o.blocker = b } }

// WithScanner enables the run-scan action.
func WithScanner(s Scanner) Option { return func(o *Orchestrator) { o.scanner = s } }

// WithRescanSink sends findings produced by the run-scan action to fn
// instead of back into the orchestrator.
func WithRescanSink(fn func(ctx context.Context, findings []models.ThreatFinding)) Option {
	return func(o *Orchestrator) { o.rescans = fn }
}

// WithArchive persists closed incidents.
func WithArchive(a Archive) Option { return func(o *Orchestrator) { o.archive = a } }

// WithCollectionSizes supplies collection sizes for evidence snapshots.
func WithCollectionSizes(fn func() map[string]int) Option {
	return func(o *Orchestrator) { o.sizes = fn }
}

// New creates an Orchestrator. events may be nil, in which case evidence
// carries no event snapshots.
func New(cfg Config, events EventLookup, opts ...Option) *Orchestrator {
	def := DefaultConfig()
	if cfg.CreationThreshold <= 0 {
		cfg.CreationThreshold = def.CreationThreshold
	}
	if cfg.CorrelationWindow <= 0 {
		cfg.CorrelationWindow = def.CorrelationWindow
	}
	if cfg.AutoCloseAfter <= 0 {
		cfg.AutoCloseAfter = def.AutoCloseAfter
	}
	if cfg.AutoCloseInterval <= 0 {
		cfg.AutoCloseInterval = def.AutoCloseInterval
	}
	if cfg.MaxActive <= 0 {
		cfg.MaxActive = def.MaxActive
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = def.MaxHistory
	}
	if cfg.Rules == nil {
		cfg.Rules = def.Rules
	}
	if cfg.Playbooks == nil {
		cfg.Playbooks = def.Playbooks
	}

	o := &Orchestrator{
		cfg:     cfg,
		events:  events,
		active:  cache.NewTimedStore[*models.Incident](),
		history: cache.NewTimedStore[*models.Incident](),
		recent:  cache.NewTimedStore[recentEvent](),
		log:     logging.WithComponent("incident"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleFindings ingests findings in order. Each finding is checked against
// active incidents, the creation threshold and the correlation rules.
func (o *Orchestrator) HandleFindings(ctx context.Context, findings []models.ThreatFinding) {
	for _, f := range findings {
		o.mu.Lock()
		o.ingest(f)
		alerts := o.takePending()
		found := o.found
		o.found = nil
		o.mu.Unlock()
		o.emit(ctx, alerts)
		o.forward(ctx, found)
	}
}

// forward hands run-scan findings on once mu is released.
func (o *Orchestrator) forward(ctx context.Context, findings []models.ThreatFinding) {
	if len(findings) == 0 {
		return
	}
	if o.rescans != nil {
		o.rescans(ctx, findings)
		return
	}
	o.HandleFindings(ctx, findings)
}

func (o *Orchestrator) ingest(f models.ThreatFinding) {
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	ev := recentEvent{
		ID:        f.EventID,
		Type:      f.Type,
		SourceIP:  f.SourceIP,
		Location:  f.Location,
		Timestamp: f.Timestamp,
	}
	if ev.ID == "" {
		ev.ID = secutil.GenerateSecureID("finding")
	}

	o.recent.EvictBefore(f.Timestamp.Add(-o.cfg.CorrelationWindow))
	o.recent.Put(recentKey(ev.ID, ev.Type, ev.Location), ev, ev.Timestamp)
	o.recent.TrimTo(maxRecent)

	appended := o.appendRelated(ev)

	if !appended {
		if score := Score(f, o.threatLevel(f)); score >= o.cfg.CreationThreshold {
			o.create(f, ev, score)
		}
	}
	o.correlate(ev)
}

func recentKey(id string, t models.ThreatType, location string) string {
	return id + "|" + string(t) + "|" + location
}

// threatLevel is the recorded event's threat level, falling back to the
// finding's own severity while the event is still in flight.
func (o *Orchestrator) threatLevel(f models.ThreatFinding) models.Severity {
	if o.events != nil && f.EventID != "" {
		if evt, ok := o.events.Get(f.EventID); ok && evt.ThreatLevel != "" {
			return evt.ThreatLevel
		}
	}
	return f.Severity
}

// appendRelated adds ev to every active incident that shares its source
// address, threat type or location.
func (o *Orchestrator) appendRelated(ev recentEvent) bool {
	var matched bool
	for _, inc := range o.active.Values() {
		if !relates(inc, ev) {
			continue
		}
		if o.addRelated(inc, ev, "related event appended") {
			matched = true
		}
	}
	return matched
}

func relates(inc *models.Incident, ev recentEvent) bool {
	if ev.SourceIP != "" && ev.SourceIP != "unknown" && inc.SourceIP == ev.SourceIP {
		return true
	}
	if inc.Type == ev.Type {
		return true
	}
	return ev.Location != "" && inc.Trigger.Location == ev.Location
}

// addRelated appends ev's ID once. It reports whether ev is now related.
func (o *Orchestrator) addRelated(inc *models.Incident, ev recentEvent, note string) bool {
	for _, id := range inc.RelatedEvents {
		if id == ev.ID {
			return true
		}
	}
	now := time.Now()
	inc.RelatedEvents = append(inc.RelatedEvents, ev.ID)
	inc.UpdatedAt = now
	inc.Timeline = append(inc.Timeline, models.TimelineEntry{
		Timestamp: now,
		Action:    "event_correlated",
		Details:   fmt.Sprintf("%s: %s at %s", note, ev.Type, ev.Location),
		Success:   true,
	})
	return true
}

// correlate evaluates every rule against the distinct types in the window.
func (o *Orchestrator) correlate(ev recentEvent) {
	window := o.recent.Values()
	types := make(map[models.ThreatType]struct{}, len(window))
	for _, e := range window {
		types[e.Type] = struct{}{}
	}

	for _, rule := range o.cfg.Rules {
		if !ruleMatches(rule, types) {
			continue
		}
		if _, inRule := ruleTypeSet(rule)[ev.Type]; !inRule {
			continue
		}
		o.correlated.Add(1)
		if inc := o.taggedActive(rule.Name); inc != nil {
			o.addRelated(inc, ev, "correlated by "+rule.Name)
			continue
		}
		o.createFromRule(rule, ev, window)
	}
}

func ruleTypeSet(rule models.CorrelationRule) map[models.ThreatType]struct{} {
	set := make(map[models.ThreatType]struct{}, len(rule.EventTypes))
	for _, t := range rule.EventTypes {
		set[t] = struct{}{}
	}
	return set
}

func (o *Orchestrator) taggedActive(tag string) *models.Incident {
	for _, inc := range o.active.Values() {
		if inc.HasTag(tag) {
			return inc
		}
	}
	return nil
}

func (o *Orchestrator) create(f models.ThreatFinding, ev recentEvent, score float64) *models.Incident {
	inc := o.newIncident(f.Type, score, ev)
	inc.Title = fmt.Sprintf("%s detected at %s", f.Type, locationOrUnknown(f.Location))
	kind := "finding"
	if f.Type == models.ThreatTrafficAnomaly || f.Type == models.ThreatBehavioralAnomaly {
		kind = "anomaly"
	}
	inc.Trigger = models.TriggerRef{Kind: kind, Type: f.Type, Location: f.Location, Excerpt: f.Excerpt}
	o.open(inc)
	return inc
}

func (o *Orchestrator) createFromRule(rule models.CorrelationRule, ev recentEvent, window []recentEvent) *models.Incident {
	inc := o.newIncident(ev.Type, rule.Severity.BaseScore(), ev)
	inc.Title = fmt.Sprintf("Correlated activity: %s", rule.Name)
	inc.Tags = append(inc.Tags, rule.Name)
	inc.Trigger = models.TriggerRef{Kind: "correlation", Type: ev.Type, Location: ev.Location, Rule: rule.Name}

	members := ruleTypeSet(rule)
	for _, e := range window {
		if _, ok := members[e.Type]; ok && e.ID != ev.ID {
			inc.RelatedEvents = append(inc.RelatedEvents, e.ID)
		}
	}
	o.open(inc)
	return inc
}

func (o *Orchestrator) newIncident(t models.ThreatType, score float64, ev recentEvent) *models.Incident {
	now := time.Now()
	return &models.Incident{
		ID:            secutil.GenerateSecureID("inc"),
		Type:          t,
		Severity:      models.SeverityFromScore(score),
		SeverityScore: score,
		Status:        models.StatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
		SourceIP:      ev.SourceIP,
		RelatedEvents: []string{ev.ID},
		Tags:          []string{},
		Mitre:         Mitre(t),
	}
}

// open registers a new incident, runs its playbook and queues notifications.
func (o *Orchestrator) open(inc *models.Incident) {
	inc.Timeline = append(inc.Timeline, models.TimelineEntry{
		Timestamp: inc.CreatedAt,
		Action:    "created",
		Details:   fmt.Sprintf("%s (score %.0f)", inc.Title, inc.SeverityScore),
		Success:   true,
	})

	o.active.Put(inc.ID, inc, inc.CreatedAt)
	o.created.Add(1)
	metrics.RecordIncidentCreated(string(inc.Severity))

	o.log.Warn().
		Str("incident_id", inc.ID).
		Str("type", string(inc.Type)).
		Str("severity", string(inc.Severity)).
		Float64("score", inc.SeverityScore).
		Str("source_ip", inc.SourceIP).
		Msg("incident created")

	if pb, ok := selectPlaybook(o.cfg.Playbooks, inc); ok {
		o.runPlaybook(inc, pb)
	}

	a := models.Alert{Type: models.AlertIncidentCreated, Severity: inc.Severity, Payload: inc.Clone()}
	if inc.Severity.AtLeast(models.SeverityHigh) {
		a.Priority = models.PriorityImmediate
	}
	o.queue(a)

	o.enforceActiveLimit(o.cfg.MaxActive)
	metrics.ActiveIncidents.Set(float64(o.active.Len()))
}

// transition moves inc to status to, or returns ErrInvalidTransition.
func (o *Orchestrator) transition(inc *models.Incident, to models.IncidentStatus, details string) error {
	if !models.CanTransition(inc.Status, to) {
		return fmt.Errorf("%s -> %s: %w", inc.Status, to, models.ErrInvalidTransition)
	}
	now := time.Now()
	from := inc.Status
	inc.Status = to
	inc.UpdatedAt = now
	inc.Timeline = append(inc.Timeline, models.TimelineEntry{
		Timestamp: now,
		Action:    "status_changed",
		Details:   fmt.Sprintf("%s -> %s: %s", from, to, details),
		Success:   true,
	})
	metrics.RecordIncidentTransition(string(to))
	return nil
}

// close transitions inc to CLOSED and moves it into history.
func (o *Orchestrator) close(inc *models.Incident, notes, by string) error {
	if err := o.transition(inc, models.StatusClosed, notes); err != nil {
		return err
	}
	closedAt := inc.UpdatedAt
	inc.ClosedAt = &closedAt
	inc.Resolution = notes
	inc.ResolvedBy = by

	o.active.Remove(inc.ID)
	o.history.Put(inc.ID, inc, closedAt)
	o.history.TrimTo(o.cfg.MaxHistory)
	o.closed.Add(1)
	metrics.ActiveIncidents.Set(float64(o.active.Len()))

	if o.archive != nil {
		if err := o.archive.Save(inc.Clone()); err != nil {
			o.log.Error().Err(err).Str("incident_id", inc.ID).Msg("failed to archive incident")
		}
	}
	o.queue(models.Alert{Type: models.AlertIncidentClosed, Severity: inc.Severity, Payload: inc.Clone()})
	return nil
}

// enforceActiveLimit closes the oldest active incidents beyond limit.
func (o *Orchestrator) enforceActiveLimit(limit int) int {
	if limit < 0 {
		limit = 0
	}
	n := 0
	for o.active.Len() > limit {
		oldest := o.active.Values()[0]
		if err := o.close(oldest, "Closed to stay within the active incident limit", "system"); err != nil {
			o.active.Remove(oldest.ID)
		}
		n++
	}
	return n
}

// Escalate moves an active incident to ESCALATED for manual review.
func (o *Orchestrator) Escalate(ctx context.Context, id, reason string) (*models.Incident, error) {
	o.mu.Lock()
	inc, ok := o.active.Get(id)
	if !ok {
		o.mu.Unlock()
		return nil, models.ErrIncidentNotFound
	}
	if reason == "" {
		reason = "manual escalation"
	}
	err := o.transition(inc, models.StatusEscalated, reason)
	if err == nil {
		o.queue(models.Alert{Type: models.AlertIncidentUpdated, Severity: inc.Severity, Payload: inc.Clone(), Priority: models.PriorityImmediate})
	}
	out := inc.Clone()
	alerts := o.takePending()
	o.mu.Unlock()

	o.emit(ctx, alerts)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Resolve closes an active incident with the operator's notes.
func (o *Orchestrator) Resolve(ctx context.Context, id, notes, by string) (*models.Incident, error) {
	o.mu.Lock()
	inc, ok := o.active.Get(id)
	if !ok {
		o.mu.Unlock()
		return nil, models.ErrIncidentNotFound
	}
	if by == "" {
		by = "admin"
	}
	err := o.close(inc, notes, by)
	out := inc.Clone()
	alerts := o.takePending()
	o.mu.Unlock()

	o.emit(ctx, alerts)
	if err != nil {
		return nil, err
	}
	o.log.Info().Str("incident_id", id).Str("resolved_by", by).Msg("incident resolved")
	return out, nil
}

// AutoClose closes OPEN incidents idle for longer than AutoCloseAfter as of
// now and returns how many were closed.
func (o *Orchestrator) AutoClose(ctx context.Context, now time.Time) int {
	o.mu.Lock()
	note := fmt.Sprintf("Automatically closed after %s of inactivity", o.cfg.AutoCloseAfter)
	n := 0
	for _, inc := range o.active.Values() {
		if inc.Status != models.StatusOpen || now.Sub(inc.UpdatedAt) <= o.cfg.AutoCloseAfter {
			continue
		}
		if err := o.close(inc, note, "system"); err == nil {
			n++
		}
	}
	alerts := o.takePending()
	o.mu.Unlock()

	o.emit(ctx, alerts)
	if n > 0 {
		o.autoClosed.Add(int64(n))
		o.log.Info().Int("closed", n).Msg("auto-closed inactive incidents")
	}
	return n
}

// RunWithContext runs the auto-close sweep every AutoCloseInterval.
func (o *Orchestrator) RunWithContext(ctx context.Context) error {
	o.log.Info().Dur("interval", o.cfg.AutoCloseInterval).Dur("after", o.cfg.AutoCloseAfter).Msg("incident auto-close started")
	ticker := time.NewTicker(o.cfg.AutoCloseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.log.Info().Msg("incident auto-close stopped")
			return ctx.Err()
		case now := <-ticker.C:
			o.safeAutoClose(ctx, now)
		}
	}
}

func (o *Orchestrator) safeAutoClose(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordDetectorError("incident-auto-close")
			o.log.Error().Str("panic", fmt.Sprint(r)).Msg("auto-close sweep panicked")
		}
	}()
	o.AutoClose(ctx, now)
}

// Active returns the active incidents, newest first.
func (o *Orchestrator) Active() []*models.Incident {
	o.mu.Lock()
	defer o.mu.Unlock()
	return newestFirst(o.active.Values())
}

// History returns up to limit closed incidents, most recently closed first.
// limit is clamped to [MinHistoryLimit, MaxHistoryLimit]. The archive, when
// configured, fills in beyond the in-memory history.
func (o *Orchestrator) History(limit int) []*models.Incident {
	limit = secutil.ClampInt(limit, MinHistoryLimit, MaxHistoryLimit)

	o.mu.Lock()
	out := newestFirst(o.history.Values())
	o.mu.Unlock()

	if len(out) > limit {
		return out[:limit]
	}
	if o.archive == nil || len(out) == limit {
		return out
	}

	archived, err := o.archive.Recent(limit)
	if err != nil {
		o.log.Warn().Err(err).Msg("incident archive unavailable")
		return out
	}
	seen := make(map[string]struct{}, len(out))
	for _, inc := range out {
		seen[inc.ID] = struct{}{}
	}
	for _, inc := range archived {
		if len(out) >= limit {
			break
		}
		if _, dup := seen[inc.ID]; !dup {
			out = append(out, inc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return archiveTime(out[i]).After(archiveTime(out[j])) })
	return out
}

// Get returns an incident by ID from the active set, history or archive.
func (o *Orchestrator) Get(id string) (*models.Incident, error) {
	o.mu.Lock()
	inc, ok := o.active.Get(id)
	if !ok {
		inc, ok = o.history.Get(id)
	}
	var out *models.Incident
	if ok {
		out = inc.Clone()
	}
	o.mu.Unlock()

	if out != nil {
		return out, nil
	}
	if o.archive != nil {
		return o.archive.Get(id)
	}
	return nil, models.ErrIncidentNotFound
}

// ActiveLen returns the number of active incidents.
func (o *Orchestrator) ActiveLen() int { return o.active.Len() }

// HistoryLen returns the number of incidents in the in-memory history.
func (o *Orchestrator) HistoryLen() int { return o.history.Len() }

// TrimActive closes active incidents beyond limit, oldest first.
func (o *Orchestrator) TrimActive(ctx context.Context, limit int) int {
	o.mu.Lock()
	n := o.enforceActiveLimit(limit)
	alerts := o.takePending()
	o.mu.Unlock()
	o.emit(ctx, alerts)
	return n
}

// TrimHistory drops the oldest history entries beyond limit.
func (o *Orchestrator) TrimHistory(limit int) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.history.TrimTo(limit))
}

// Stats returns a snapshot of orchestrator counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Created:       o.created.Load(),
		Closed:        o.closed.Load(),
		AutoClosed:    o.autoClosed.Load(),
		Correlated:    o.correlated.Load(),
		ActionsFailed: o.actionsFailed.Load(),
		Active:        o.active.Len(),
		History:       o.history.Len(),
	}
}

// queue must be called with mu held.
func (o *Orchestrator) queue(a models.Alert) {
	o.pending = append(o.pending, a)
}

func (o *Orchestrator) takePending() []models.Alert {
	alerts := o.pending
	o.pending = nil
	return alerts
}

func (o *Orchestrator) emit(ctx context.Context, alerts []models.Alert) {
	if o.alerts == nil {
		return
	}
	for _, a := range alerts {
		o.alerts.Emit(ctx, a)
	}
}

func newestFirst(incs []*models.Incident) []*models.Incident {
	out := make([]*models.Incident, len(incs))
	for i, inc := range incs {
		out[len(incs)-1-i] = inc.Clone()
	}
	return out
}

func locationOrUnknown(loc string) string {
	if loc == "" {
		return "unknown location"
	}
	return loc
}
