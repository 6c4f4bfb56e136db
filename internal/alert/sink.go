// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package alert

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/secutil"
)

// Subscriber receives every alert emitted by the engine.
//
// Notify is called synchronously from the producer, so implementations that
// do I/O must hand the alert off and return quickly.
type Subscriber interface {
	Name() string
	Notify(ctx context.Context, a models.Alert) error
}

// SubscriberFunc adapts a plain callback to Subscriber.
type SubscriberFunc func(ctx context.Context, a models.Alert) error

// Name implements Subscriber.
func (f SubscriberFunc) Name() string { return "callback" }

// Notify implements Subscriber.
func (f SubscriberFunc) Notify(ctx context.Context, a models.Alert) error { return f(ctx, a) }

type namedFunc struct {
	name string
	fn   SubscriberFunc
}

func (n namedFunc) Name() string { return n.name }

func (n namedFunc) Notify(ctx context.Context, a models.Alert) error { return n.fn(ctx, a) }

// Sink fans alerts out to registered subscribers. A subscriber that returns
// an error or panics is logged and counted; the others still receive the
// alert.
type Sink struct {
	mu   sync.RWMutex
	subs []Subscriber
	log  zerolog.Logger

	sent     atomic.Int64
	failures atomic.Int64
}

// NewSink creates a Sink with no subscribers.
func NewSink() *Sink {
	return &Sink{log: logging.WithComponent("alert-sink")}
}

// Register adds sub. Subscribers are notified in registration order.
func (s *Sink) Register(sub Subscriber) {
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	s.log.Debug().Str("subscriber", sub.Name()).Msg("alert subscriber registered")
}

// RegisterFunc registers a named callback.
func (s *Sink) RegisterFunc(name string, fn func(ctx context.Context, a models.Alert) error) {
	s.Register(namedFunc{name: name, fn: fn})
}

// Emit delivers a to every subscriber. Missing IDs and timestamps are filled in.
func (s *Sink) Emit(ctx context.Context, a models.Alert) {
	if a.ID == "" {
		a.ID = secutil.GenerateSecureID("alert")
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}

	s.mu.RLock()
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	s.sent.Add(1)
	metrics.RecordAlert(string(a.Type))
	for _, sub := range subs {
		s.notify(ctx, sub, a)
	}
}

func (s *Sink) notify(ctx context.Context, sub Subscriber, a models.Alert) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(sub, a, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := sub.Notify(ctx, a); err != nil {
		s.fail(sub, a, err)
	}
}

func (s *Sink) fail(sub Subscriber, a models.Alert, err error) {
	s.failures.Add(1)
	metrics.RecordSubscriberFailure(sub.Name())
	s.log.Warn().Err(err).
		Str("subscriber", sub.Name()).
		Str("alert_id", a.ID).
		Str("alert_type", string(a.Type)).
		Msg("alert subscriber failed")
}

// Sent returns the number of alerts emitted.
func (s *Sink) Sent() int64 { return s.sent.Load() }

// Failures returns the number of failed subscriber deliveries.
func (s *Sink) Failures() int64 { return s.failures.Load() }

// Subscribers returns the registered subscriber names.
func (s *Sink) Subscribers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.subs))
	for i, sub := range s.subs {
		names[i] = sub.Name()
	}
	return names
}
