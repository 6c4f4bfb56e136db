// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
)

// ErrWebhookQueueFull is returned by Notify when the delivery queue is full.
var ErrWebhookQueueFull = errors.New("webhook queue full")

// WebhookConfig configures the webhook subscriber.
type WebhookConfig struct {
	URL     string
	Headers map[string]string

	// RateLimit is the minimum spacing between deliveries. Zero disables it.
	RateLimit time.Duration
	Timeout   time.Duration
	QueueSize int

	// FailureThreshold consecutive failures open the breaker for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultWebhookConfig returns the delivery defaults for url.
func DefaultWebhookConfig(url string) WebhookConfig {
	return WebhookConfig{
		URL:              url,
		RateLimit:        time.Second,
		Timeout:          10 * time.Second,
		QueueSize:        100,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

type webhookPayload struct {
	Alert     models.Alert `json:"alert"`
	EventType string       `json:"event_type"`
	Timestamp time.Time    `json:"timestamp"`
	Source    string       `json:"source"`
}

// WebhookSubscriber POSTs alerts as JSON to an HTTP endpoint.
//
// Notify only enqueues; RunWithContext performs delivery so a slow or
// failing endpoint never stalls the producer. Delivery goes through a
// circuit breaker and is spaced by RateLimit.
type WebhookSubscriber struct {
	cfg     WebhookConfig
	client  *http.Client
	queue   chan models.Alert
	breaker *gobreaker.CircuitBreaker[interface{}]
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewWebhookSubscriber creates a webhook subscriber. Zero fields in cfg take
// their DefaultWebhookConfig values.
func NewWebhookSubscriber(cfg WebhookConfig) *WebhookSubscriber {
	def := DefaultWebhookConfig(cfg.URL)
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}

	w := &WebhookSubscriber{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		queue:  make(chan models.Alert, cfg.QueueSize),
		log:    logging.WithComponent("alert-webhook"),
	}
	if cfg.RateLimit > 0 {
		w.limiter = rate.NewLimiter(rate.Every(cfg.RateLimit), 1)
	}

	threshold := cfg.FailureThreshold
	w.breaker = gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "alert-webhook",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.CircuitStateValue(to.String()))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			w.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("webhook circuit breaker state changed")
		},
	})
	metrics.CircuitBreakerState.WithLabelValues("alert-webhook").Set(0)
	return w
}

// Name implements Subscriber.
func (w *WebhookSubscriber) Name() string { return "webhook" }

// Notify implements Subscriber.
func (w *WebhookSubscriber) Notify(_ context.Context, a models.Alert) error {
	select {
	case w.queue <- a:
		return nil
	default:
		return ErrWebhookQueueFull
	}
}

// BreakerState returns the circuit breaker state name.
func (w *WebhookSubscriber) BreakerState() string { return w.breaker.State().String() }

// RunWithContext delivers queued alerts until ctx is canceled.
func (w *WebhookSubscriber) RunWithContext(ctx context.Context) error {
	w.log.Info().Str("url", w.cfg.URL).Msg("webhook delivery started")
	defer w.log.Info().Msg("webhook delivery stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-w.queue:
			if err := w.deliver(ctx, a); err != nil && ctx.Err() == nil {
				metrics.RecordSubscriberFailure(w.Name())
				w.log.Warn().Err(err).Str("alert_id", a.ID).Msg("webhook delivery failed")
			}
		}
	}
}

func (w *WebhookSubscriber) deliver(ctx context.Context, a models.Alert) error {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	_, err := w.breaker.Execute(func() (interface{}, error) {
		return nil, w.post(ctx, a)
	})
	return err
}

func (w *WebhookSubscriber) post(ctx context.Context, a models.Alert) error {
	body, err := json.Marshal(webhookPayload{
		Alert:     a,
		EventType: "security_alert",
		Timestamp: time.Now(),
		Source:    "sentinel",
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Sentinel/1.0")
	for k, v := range w.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
