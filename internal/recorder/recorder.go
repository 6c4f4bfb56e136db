// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package recorder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/secutil"
	"github.com/tomtom215/sentinel/internal/threat"
)

// ThreatSink receives findings as soon as they are produced.
type ThreatSink interface {
	HandleFindings(ctx context.Context, findings []models.ThreatFinding)
}

// PressureSignal is notified when a collection grows past its ceiling.
type PressureSignal interface {
	Trigger()
}

// Config configures the Recorder.
type Config struct {
	// EnableThreatDetection turns on the inline quick scan and deep scans.
	EnableThreatDetection bool

	// MaxBodyBytes bounds how much of a body is captured for deep scanning.
	// Zero disables body capture.
	MaxBodyBytes int64

	// DeepScanQueue is the capacity of the deep-scan queue. Zero disables
	// deep scanning.
	DeepScanQueue int

	// Thresholds derive the threat level from the final risk score. Zero
	// uses models.DefaultRiskThresholds.
	Thresholds models.RiskThresholds
}

// Recorder is the HTTP middleware that turns every request into a
// SecurityEvent. Rate limiting and path traversal fail closed; everything
// else fails open.
type Recorder struct {
	cfg     Config
	store   *EventStore
	limiter *secutil.Limiter
	quick   *threat.QuickScanner
	sink    ThreatSink
	signal  PressureSignal
	blocked *secutil.Blocklist
	jobs    chan DeepScanJob
	log     zerolog.Logger

	eventsProcessed atomic.Int64
	blockedRequests atomic.Int64
	invalidInputs   atomic.Int64
	deepDropped     atomic.Int64
	overheadNanos   atomic.Int64
	overheadCount   atomic.Int64
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithThreatSink forwards quick-scan, traversal and deep-scan findings to sink.
func WithThreatSink(sink ThreatSink) Option {
	return func(r *Recorder) { r.sink = sink }
}

// WithPressureSignal sets the receiver of memory-limit signals.
func WithPressureSignal(sig PressureSignal) Option {
	return func(r *Recorder) { r.signal = sig }
}

// WithBlocklist rejects sources present in bl with 403.
func WithBlocklist(bl *secutil.Blocklist) Option {
	return func(r *Recorder) { r.blocked = bl }
}

// New creates a Recorder.
func New(cfg Config, store *EventStore, limiter *secutil.Limiter, opts ...Option) *Recorder {
	if cfg.Thresholds.IsZero() {
		cfg.Thresholds = models.DefaultRiskThresholds
	}
	r := &Recorder{
		cfg:     cfg,
		store:   store,
		limiter: limiter,
		quick:   threat.NewQuickScanner(),
		log:     logging.WithComponent("recorder"),
	}
	if cfg.EnableThreatDetection && cfg.DeepScanQueue > 0 {
		r.jobs = make(chan DeepScanJob, cfg.DeepScanQueue)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Middleware wraps next with recording, rate limiting and inline scanning.
func (rec *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		ip := secutil.SanitizeIP(clientAddr(r))
		if ip == secutil.UnknownIP {
			rec.invalidInputs.Add(1)
			metrics.RecordInvalidInput("ip")
		}

		if rec.blocked != nil && rec.blocked.IsBlocked(ip) {
			rec.reject(w, r, "blocklist", http.StatusForbidden, models.CodeSourceBlocked, models.ErrSourceBlocked.Error())
			return
		}

		if !rec.limiter.Allow(ip) {
			rec.reject(w, r, "rate_limit", http.StatusTooManyRequests, models.CodeRateLimitExceeded, models.ErrRateLimitExceeded.Error())
			return
		}

		if !secutil.ValidateMethod(r.Method) {
			rec.invalidInputs.Add(1)
			metrics.RecordInvalidInput("method")
			writeError(w, r, http.StatusMethodNotAllowed, models.CodeInvalidMethod, models.ErrInvalidMethod.Error())
			return
		}

		evt := models.SecurityEvent{
			ID:        secutil.GenerateSecureID("evt"),
			SourceIP:  ip,
			Method:    r.Method,
			Query:     r.URL.Query(),
			UserAgent: r.UserAgent(),
			Headers:   secutil.SanitizeHeaders(r.Header),
			Timestamp: start,
			BodySize:  r.ContentLength,
		}

		path, err := secutil.NormalizePath(r.URL.EscapedPath())
		if err != nil {
			rec.rejectTraversal(ctx, w, r, evt)
			return
		}
		evt.Path = path

		var findings []models.ThreatFinding
		if rec.cfg.EnableThreatDetection {
			findings = rec.quick.Scan(evt.UserAgent, evt.Path, evt.Query)
			for i := range findings {
				findings[i].SourceIP = ip
				findings[i].EventID = evt.ID
			}
			rec.forward(ctx, findings)
		}

		rec.record(evt)
		body := rec.captureBody(r)
		rec.enqueueDeepScan(evt, body, r.Header.Get("Content-Type"))
		rec.observeOverhead(time.Since(start))

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		latency := time.Since(start)
		rec.store.Backfill(evt.ID, func(e *models.SecurityEvent) {
			e.ResponseStatus = sw.status
			e.ResponseSize = sw.bytes
			e.ResponseTimeMs = float64(latency.Microseconds()) / 1000
			e.RiskScore = secutil.ClampFloat(e.RiskScore+ResponseRisk(sw.status, latency, len(findings)), 0, 100)
			e.ThreatLevel = rec.cfg.Thresholds.Level(e.RiskScore)
			e.Processed = true
		})
	})
}

// ResponseRisk is the risk added to an event once its response is known.
func ResponseRisk(status int, latency time.Duration, quickFindings int) float64 {
	var risk float64
	switch {
	case status >= 500:
		risk += 20
	case status >= 400:
		risk += 10
	}
	switch {
	case latency > 5*time.Second:
		risk += 15
	case latency > time.Second:
		risk += 5
	}
	risk += 25 * float64(quickFindings)
	return secutil.ClampFloat(risk, 0, 100)
}

func (rec *Recorder) reject(w http.ResponseWriter, r *http.Request, reason string, status int, code, msg string) {
	rec.blockedRequests.Add(1)
	metrics.RecordBlocked(reason)
	logging.Ctx(r.Context()).Debug().Str("component", "recorder").Str("reason", reason).Msg("request rejected")
	writeError(w, r, status, code, msg)
}

// rejectTraversal refuses the request before scoring and still records the
// attempt so incidents can reference it.
func (rec *Recorder) rejectTraversal(ctx context.Context, w http.ResponseWriter, r *http.Request, evt models.SecurityEvent) {
	evt.Path = secutil.Truncate(r.URL.EscapedPath(), secutil.MaxPathLength)
	evt.ResponseStatus = http.StatusBadRequest
	evt.Processed = true
	rec.record(evt)

	rec.forward(ctx, []models.ThreatFinding{{
		Type:       models.ThreatPathTraversal,
		Severity:   models.SeverityHigh,
		Confidence: 1,
		Location:   "path",
		Excerpt:    models.Excerpt(evt.Path),
		Timestamp:  evt.Timestamp,
		SourceIP:   evt.SourceIP,
		EventID:    evt.ID,
		Blocked:    true,
	}})
	rec.reject(w, r, "path_traversal", http.StatusBadRequest, models.CodePathTraversal, models.ErrPathTraversal.Error())
}

func (rec *Recorder) record(evt models.SecurityEvent) {
	err := rec.store.Add(evt)
	rec.eventsProcessed.Add(1)
	metrics.EventsTotal.Inc()
	if errors.Is(err, models.ErrMemoryLimitExceeded) && rec.signal != nil {
		rec.signal.Trigger()
	}
}

func (rec *Recorder) forward(ctx context.Context, findings []models.ThreatFinding) {
	if len(findings) == 0 || rec.sink == nil {
		return
	}
	rec.sink.HandleFindings(context.WithoutCancel(ctx), findings)
}

// captureBody reads up to MaxBodyBytes for deep scanning and restores the
// full body for the next handler.
func (rec *Recorder) captureBody(r *http.Request) []byte {
	if rec.jobs == nil || rec.cfg.MaxBodyBytes <= 0 || r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, rec.cfg.MaxBodyBytes))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
	if err != nil {
		rec.log.Debug().Err(err).Msg("partial body capture")
	}
	return buf
}

func (rec *Recorder) enqueueDeepScan(evt models.SecurityEvent, body []byte, contentType string) {
	if rec.jobs == nil {
		return
	}
	job := DeepScanJob{Request: threat.ScanRequest{
		EventID:     evt.ID,
		SourceIP:    evt.SourceIP,
		Path:        evt.Path,
		Query:       evt.Query,
		Headers:     evt.Headers,
		Body:        body,
		ContentType: contentType,
	}}
	select {
	case rec.jobs <- job:
		metrics.DeepScanQueueDepth.Set(float64(len(rec.jobs)))
	default:
		rec.deepDropped.Add(1)
		metrics.DeepScanDropped.Inc()
	}
}

func (rec *Recorder) observeOverhead(d time.Duration) {
	rec.overheadNanos.Add(d.Nanoseconds())
	rec.overheadCount.Add(1)
	metrics.RecordRequestOverhead(d)
}

// Jobs exposes the deep-scan queue to the worker service.
func (rec *Recorder) Jobs() <-chan DeepScanJob { return rec.jobs }

// Store returns the event store.
func (rec *Recorder) Store() *EventStore { return rec.store }

// Stats is a snapshot of recorder counters.
type Stats struct {
	EventsProcessed      int64
	BlockedRequests      int64
	InvalidInputs        int64
	DeepScanDropped      int64
	DeepScanQueueDepth   int
	AvgRequestOverheadUs float64
}

// Stats returns a snapshot of recorder counters.
func (rec *Recorder) Stats() Stats {
	s := Stats{
		EventsProcessed: rec.eventsProcessed.Load(),
		BlockedRequests: rec.blockedRequests.Load(),
		InvalidInputs:   rec.invalidInputs.Load(),
		DeepScanDropped: rec.deepDropped.Load(),
	}
	if rec.jobs != nil {
		s.DeepScanQueueDepth = len(rec.jobs)
	}
	if n := rec.overheadCount.Load(); n > 0 {
		s.AvgRequestOverheadUs = float64(rec.overheadNanos.Load()) / float64(n) / 1000
	}
	return s
}

// clientAddr prefers the forwarded headers over the socket address. The
// value is untrusted and only ever passed through SanitizeIP.
func clientAddr(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		return v
	}
	if v := r.Header.Get("X-Real-IP"); v != "" {
		return v
	}
	return r.RemoteAddr
}
