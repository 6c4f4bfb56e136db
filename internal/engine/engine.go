// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/sentinel/internal/alert"
	"github.com/tomtom215/sentinel/internal/analytics"
	"github.com/tomtom215/sentinel/internal/cache"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/governor"
	"github.com/tomtom215/sentinel/internal/incident"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/profiler"
	"github.com/tomtom215/sentinel/internal/recorder"
	"github.com/tomtom215/sentinel/internal/secutil"
	"github.com/tomtom215/sentinel/internal/threat"
	ws "github.com/tomtom215/sentinel/internal/websocket"
)

// Runner is a background loop that returns when its context ends.
type Runner interface {
	RunWithContext(ctx context.Context) error
}

// Component is a named Runner for the supervisor tree.
type Component struct {
	Name   string
	Runner Runner
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSubscriber registers an additional alert subscriber.
func WithSubscriber(sub alert.Subscriber) Option {
	return func(e *Engine) { e.extra = append(e.extra, sub) }
}

// WithPublisher publishes alerts through pub instead of the default
// in-process channel or NATS.
func WithPublisher(pub message.Publisher) Option {
	return func(e *Engine) { e.publisherOverride = pub }
}

// Engine owns every store and component and routes findings between them.
type Engine struct {
	cfg       *config.Config
	log       zerolog.Logger
	startedAt time.Time

	limiter    *secutil.Limiter
	blocklist  *secutil.Blocklist
	events     *recorder.EventStore
	recorder   *recorder.Recorder
	dispatcher *threat.Dispatcher
	deepScan   *recorder.DeepScanner
	indicators *analytics.IndicatorStore
	analytics  *analytics.Engine
	profiles   *profiler.ProfileStore
	profiler   *profiler.Profiler
	incidents  *incident.Orchestrator
	archive    incident.Archive
	governor   *governor.Governor

	sink              *alert.Sink
	hub               *ws.Hub
	webhook           *alert.WebhookSubscriber
	publisher         *alert.PublisherSubscriber
	publisherOverride message.Publisher
	pubsub            message.Subscriber
	natsServer        *alert.EmbeddedServer
	extra             []alert.Subscriber

	// seen holds event|type|location keys already reported, so a threat
	// caught by both the quick scan and the deep scan is counted once.
	seen *cache.TimedStore[struct{}]

	bruteForce *threat.BruteForceDetector

	threats  atomic.Int64
	ingested atomic.Int64
}

// New validates cfg and builds the engine. An invalid configuration returns
// an error wrapping models.ErrInvalidConfig.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		log:       logging.WithComponent("engine"),
		startedAt: time.Now(),
		limiter:   secutil.NewLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RequestsPerSecond),
		events:    recorder.NewEventStore(cfg.Limits.MaxEvents),
		sink:      alert.NewSink(),
		hub:       ws.NewHub(),
		seen:      cache.NewTimedStore[struct{}](),
	}
	e.bruteForce = threat.NewBruteForceDetector(cfg.Security.BruteForceThreshold,
		cfg.Security.BruteForceWindow, cfg.Limits.MaxRateLimitBuckets)
	for _, opt := range opts {
		opt(e)
	}

	if err := e.buildAlerts(); err != nil {
		return nil, err
	}
	if err := e.buildIncidents(); err != nil {
		e.closeAlerts(context.Background())
		return nil, err
	}
	e.buildPipeline()
	e.buildGovernor()

	e.log.Info().
		Bool("threat_detection", cfg.Monitoring.EnableThreatDetection).
		Bool("anomaly_detection", cfg.Monitoring.EnableAnomalyDetection).
		Bool("behavioral_analysis", cfg.Monitoring.EnableBehavioralAnalysis).
		Bool("incident_response", cfg.Monitoring.EnableIncidentResponse).
		Strs("alert_subscribers", e.sink.Subscribers()).
		Msg("security engine initialized")
	return e, nil
}

func (e *Engine) buildAlerts() error {
	e.sink.Register(alert.NewLogSubscriber())
	e.sink.Register(alert.NewBroadcastSubscriber(e.hub))

	if w := e.cfg.Alerts.Webhook; w.URL != "" {
		wc := alert.DefaultWebhookConfig(w.URL)
		wc.Headers = w.Headers
		wc.RateLimit = time.Duration(w.RateLimitMs) * time.Millisecond
		if w.Timeout > 0 {
			wc.Timeout = w.Timeout
		}
		e.webhook = alert.NewWebhookSubscriber(wc)
		e.sink.Register(e.webhook)
	}

	pub, err := e.alertPublisher()
	if err != nil {
		return err
	}
	e.publisher = alert.NewPublisherSubscriber(pub, e.cfg.Alerts.NATS.Subject)
	e.sink.Register(e.publisher)

	for _, sub := range e.extra {
		e.sink.Register(sub)
	}
	return nil
}

// alertPublisher picks the override, NATS (embedded or remote) or the
// in-process channel, in that order.
func (e *Engine) alertPublisher() (message.Publisher, error) {
	if e.publisherOverride != nil {
		return e.publisherOverride, nil
	}

	n := e.cfg.Alerts.NATS
	if !n.Enabled {
		ch := alert.NewGoChannelPublisher()
		e.pubsub = ch
		return ch, nil
	}

	url := n.URL
	if n.Embedded {
		srv, err := alert.StartEmbeddedServer(alert.EmbeddedServerConfig{Host: "127.0.0.1", Port: -1, StoreDir: n.StoreDir})
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		e.natsServer = srv
		url = srv.ClientURL()
	}

	pub, err := alert.NewNATSPublisher(alert.NATSConfig{URL: url, MaxReconnects: -1, ReconnectWait: 2 * time.Second})
	if err != nil {
		if e.natsServer != nil {
			_ = e.natsServer.Shutdown(context.Background())
		}
		return nil, fmt.Errorf("connect NATS publisher: %w", err)
	}
	return pub, nil
}

func (e *Engine) buildIncidents() error {
	c := e.cfg
	if c.RateLimit.EnableIPBlocking {
		e.blocklist = secutil.NewBlocklist(c.RateLimit.BlockDuration)
	}

	opts := []incident.Option{
		incident.WithAlerts(e.sink),
		incident.WithCollectionSizes(e.sizeMap),
		incident.WithRescanSink(e.HandleFindings),
	}
	if e.blocklist != nil {
		opts = append(opts, incident.WithBlocker(e.blocklist))
	}
	if c.Monitoring.EnableThreatDetection {
		e.dispatcher = threat.NewDispatcher(threat.DefaultDetectors()...)
		opts = append(opts, incident.WithScanner(e.dispatcher))
	}
	if c.Incident.ArchivePath != "" {
		archive, err := incident.OpenBadgerArchive(c.Incident.ArchivePath)
		if err != nil {
			return fmt.Errorf("open incident archive: %w", err)
		}
		e.archive = archive
		opts = append(opts, incident.WithArchive(archive))
	}

	e.incidents = incident.New(incident.Config{
		CreationThreshold: c.Incident.CreationThreshold,
		CorrelationWindow: c.Incident.CorrelationWindow,
		AutoCloseAfter:    c.Incident.AutoCloseAfter,
		AutoCloseInterval: c.Incident.AutoCloseInterval,
		MaxActive:         c.Limits.MaxActiveIncidents,
		MaxHistory:        c.Limits.MaxIncidents,
	}, e.events, opts...)
	return nil
}

func (e *Engine) buildPipeline() {
	c := e.cfg

	e.governor = governor.New(governor.Config{
		Interval:  c.Limits.SweepInterval,
		Retention: c.Monitoring.RetentionPeriod,
	})

	recOpts := []recorder.Option{
		recorder.WithThreatSink(e),
		recorder.WithPressureSignal(e.governor),
	}
	if e.blocklist != nil {
		recOpts = append(recOpts, recorder.WithBlocklist(e.blocklist))
	}
	e.recorder = recorder.New(recorder.Config{
		EnableThreatDetection: c.Monitoring.EnableThreatDetection,
		MaxBodyBytes:          c.Recorder.MaxBodyBytes,
		DeepScanQueue:         c.Recorder.DeepScanQueue,
		Thresholds:            c.RiskThresholds(),
	}, e.events, e.limiter, recOpts...)

	if e.dispatcher != nil {
		e.deepScan = recorder.NewDeepScanner(e.recorder.Jobs(), e.dispatcher, e, c.Recorder.DeepScanWorkers)
	}

	e.indicators = analytics.NewIndicatorStore()
	acfg := analytics.DefaultConfig()
	acfg.Interval = c.Monitoring.Interval
	acfg.SuspiciousRisk = c.Thresholds.PerEventRisk
	e.analytics = analytics.New(acfg, e.events, e.indicators, e, e.sink)

	e.profiles = profiler.NewProfileStore()
	pcfg := profiler.DefaultConfig()
	pcfg.Interval = c.Monitoring.ProfileInterval
	e.profiler = profiler.New(pcfg, e.events, e.profiles, e)
}

func (e *Engine) buildGovernor() {
	l := e.cfg.Limits
	g := e.governor

	g.Register(governor.Collection{Name: "events", Limit: l.MaxEvents, Len: e.events.Len, TrimTo: e.events.TrimTo})
	g.RegisterRetention("events", e.events.EvictBefore)
	g.Register(governor.Collection{Name: "active_incidents", Limit: l.MaxActiveIncidents, Len: e.incidents.ActiveLen,
		TrimTo: func(limit int) int { return e.incidents.TrimActive(context.Background(), limit) }})
	g.Register(governor.Collection{Name: "incident_history", Limit: l.MaxIncidents, Len: e.incidents.HistoryLen, TrimTo: e.incidents.TrimHistory})
	g.Register(governor.Collection{Name: "indicators", Limit: l.MaxIndicators, Len: e.indicators.Len, TrimTo: e.indicators.TrimTo})
	g.Register(governor.Collection{Name: "profiles", Limit: l.MaxProfiles, Len: e.profiles.Len, TrimTo: e.profiles.TrimTo})
	g.Register(governor.Collection{Name: "rate_limit_buckets", Limit: l.MaxRateLimitBuckets, Len: e.limiter.Len, TrimTo: e.limiter.EvictOldest})
	if e.blocklist != nil {
		g.Register(governor.Collection{Name: "blocklist", Limit: l.MaxRateLimitBuckets, Len: e.blocklist.Len, TrimTo: e.blocklist.TrimTo})
	}
}

// RecordAuthFailure counts a rejected administration credential against the
// request's source address and raises BRUTE_FORCE at the threshold.
func (e *Engine) RecordAuthFailure(r *http.Request, username string) {
	source := secutil.SanitizeIP(r.RemoteAddr)
	f, ok := e.bruteForce.RecordFailure(source, username, time.Now())
	if !ok {
		return
	}
	e.log.Warn().
		Str("source_ip", source).
		Str("username", username).
		Msg("Repeated authentication failures")
	e.HandleFindings(r.Context(), []models.ThreatFinding{f})
}

// HandleFindings is the fan-in for the recorder, deep scans, analytics and
// the profiler. Threat findings are counted and alerted; everything goes to
// the incident orchestrator when incident response is enabled.
func (e *Engine) HandleFindings(ctx context.Context, findings []models.ThreatFinding) {
	findings = e.firstSightings(findings)
	if len(findings) == 0 {
		return
	}
	for _, f := range findings {
		switch f.Type {
		case models.ThreatTrafficAnomaly:
			// analytics raises its own TRAFFIC_ANOMALY alert
		case models.ThreatBehavioralAnomaly:
			e.sink.Emit(ctx, models.Alert{Type: models.AlertBehavioralAnomaly, Severity: f.Severity, Payload: f})
		default:
			e.threats.Add(1)
			metrics.RecordThreat(string(f.Type), string(f.Severity))
			e.sink.Emit(ctx, models.Alert{Type: models.AlertThreatDetected, Severity: f.Severity, Payload: f})
		}
	}
	if e.cfg.Monitoring.EnableIncidentResponse {
		e.incidents.HandleFindings(ctx, findings)
	}
}

// firstSightings drops findings whose event already reported the same
// threat type at the same location inside the correlation window. Findings without an event ID,
// such as traffic anomalies, always pass.
func (e *Engine) firstSightings(findings []models.ThreatFinding) []models.ThreatFinding {
	now := time.Now()
	e.seen.EvictBefore(now.Add(-e.cfg.Incident.CorrelationWindow))

	out := findings[:0:0]
	for _, f := range findings {
		if f.EventID != "" && !e.seen.PutIfAbsent(f.EventID+"|"+string(f.Type)+"|"+f.Location, struct{}{}, now) {
			continue
		}
		out = append(out, f)
	}
	e.seen.TrimTo(e.cfg.Limits.MaxEvents)
	return out
}

// Middleware records and screens every request before next.
func (e *Engine) Middleware(next http.Handler) http.Handler {
	return e.recorder.Middleware(next)
}

// Components returns the background loops for the supervisor, honoring the
// feature switches.
func (e *Engine) Components() []Component {
	m := e.cfg.Monitoring
	out := []Component{{Name: "memory-governor", Runner: e.governor}}
	if e.deepScan != nil {
		out = append(out, Component{Name: "deep-scan", Runner: e.deepScan})
	}
	if m.EnableAnomalyDetection {
		out = append(out, Component{Name: "traffic-analytics", Runner: e.analytics})
	}
	if m.EnableBehavioralAnalysis {
		out = append(out, Component{Name: "behavioral-profiler", Runner: e.profiler})
	}
	if m.EnableIncidentResponse {
		out = append(out, Component{Name: "incident-autoclose", Runner: e.incidents})
	}
	return out
}

// MessagingComponents returns the alert delivery loops.
func (e *Engine) MessagingComponents() []Component {
	out := []Component{{Name: "websocket-hub", Runner: e.hub}}
	if e.webhook != nil {
		out = append(out, Component{Name: "alert-webhook", Runner: e.webhook})
	}
	return out
}

// Close releases the publisher, the embedded NATS server and the archive.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	errs = append(errs, e.closeAlerts(ctx)...)
	if e.archive != nil {
		if err := e.archive.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close incident archive: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) closeAlerts(ctx context.Context) []error {
	var errs []error
	if e.publisher != nil {
		if err := e.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close alert publisher: %w", err))
		}
	}
	if e.natsServer != nil {
		if err := e.natsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown embedded NATS: %w", err))
		}
	}
	return errs
}

// Incidents returns the orchestrator for the administration API.
func (e *Engine) Incidents() *incident.Orchestrator { return e.incidents }

// Indicators returns the threat indicator store.
func (e *Engine) Indicators() *analytics.IndicatorStore { return e.indicators }

// Profiles returns the behavioral profile store.
func (e *Engine) Profiles() *profiler.ProfileStore { return e.profiles }

// Events returns the event store.
func (e *Engine) Events() *recorder.EventStore { return e.events }

// Hub returns the live alert hub.
func (e *Engine) Hub() *ws.Hub { return e.hub }

// Alerts returns the alert sink.
func (e *Engine) Alerts() *alert.Sink { return e.sink }

// Analytics returns the traffic analytics engine.
func (e *Engine) Analytics() *analytics.Engine { return e.analytics }

// Profiler returns the behavioral profiler.
func (e *Engine) Profiler() *profiler.Profiler { return e.profiler }

// Governor returns the memory governor.
func (e *Engine) Governor() *governor.Governor { return e.governor }

// AlertSubscriber returns the in-process alert stream, or nil when alerts
// are published to NATS or an overriding publisher.
func (e *Engine) AlertSubscriber() message.Subscriber { return e.pubsub }

// AlertTopic is the topic alerts are published on.
func (e *Engine) AlertTopic() string { return e.publisher.Topic() }
