// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package alert

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

type recordingSubscriber struct {
	name string
	mu   sync.Mutex
	got  []models.Alert
}

func (r *recordingSubscriber) Name() string { return r.name }

func (r *recordingSubscriber) Notify(_ context.Context, a models.Alert) error {
	r.mu.Lock()
	r.got = append(r.got, a)
	r.mu.Unlock()
	return nil
}

func (r *recordingSubscriber) alerts() []models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Alert(nil), r.got...)
}

func TestSink_IsolatesFailingSubscribers(t *testing.T) {
	sink := NewSink()
	before := sink.Sent()
	first := &recordingSubscriber{name: "first"}
	last := &recordingSubscriber{name: "last"}

	sink.Register(first)
	sink.RegisterFunc("panics", func(context.Context, models.Alert) error { panic("boom") })
	sink.RegisterFunc("errors", func(context.Context, models.Alert) error { return errors.New("down") })
	sink.Register(last)

	panicsBefore := testutil.ToFloat64(metrics.AlertSubscriberFailures.WithLabelValues("panics"))

	sink.Emit(context.Background(), models.Alert{Type: models.AlertThreatDetected, Severity: models.SeverityHigh})

	for _, sub := range []*recordingSubscriber{first, last} {
		got := sub.alerts()
		if len(got) != 1 {
			t.Fatalf("%s received %d alerts, want 1", sub.name, len(got))
		}
		if got[0].ID == "" || got[0].Timestamp.IsZero() {
			t.Errorf("%s received alert without ID or timestamp: %+v", sub.name, got[0])
		}
	}
	if first.alerts()[0].ID != last.alerts()[0].ID {
		t.Error("subscribers saw different alert IDs")
	}
	if sink.Sent()-before != 1 {
		t.Errorf("Sent = %d, want 1", sink.Sent()-before)
	}
	if sink.Failures() != 2 {
		t.Errorf("Failures = %d, want 2", sink.Failures())
	}
	if got := testutil.ToFloat64(metrics.AlertSubscriberFailures.WithLabelValues("panics")) - panicsBefore; got != 1 {
		t.Errorf("panics failure metric delta = %v, want 1", got)
	}

	names := sink.Subscribers()
	want := []string{"first", "panics", "errors", "last"}
	if len(names) != len(want) {
		t.Fatalf("Subscribers = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Subscribers[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestSink_KeepsExistingIDAndTimestamp(t *testing.T) {
	sink := NewSink()
	sub := &recordingSubscriber{name: "rec"}
	sink.Register(sub)

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sink.Emit(context.Background(), models.Alert{ID: "alert-1", Timestamp: ts})

	got := sub.alerts()[0]
	if got.ID != "alert-1" || !got.Timestamp.Equal(ts) {
		t.Errorf("alert = %+v, want original ID and timestamp", got)
	}
}

type fakeBroadcaster struct{ got []models.Alert }

func (f *fakeBroadcaster) BroadcastAlert(a models.Alert) { f.got = append(f.got, a) }

func TestBroadcastAndLogSubscribers(t *testing.T) {
	b := &fakeBroadcaster{}
	sink := NewSink()
	sink.Register(NewBroadcastSubscriber(b))
	sink.Register(NewLogSubscriber())

	sink.Emit(context.Background(), models.Alert{Type: models.AlertIncidentCreated, Severity: models.SeverityCritical, Priority: models.PriorityImmediate})

	if len(b.got) != 1 || b.got[0].Type != models.AlertIncidentCreated {
		t.Errorf("broadcaster got %+v", b.got)
	}
	if sink.Failures() != 0 {
		t.Errorf("Failures = %d, want 0", sink.Failures())
	}
}

func runWebhook(t *testing.T, w *WebhookSubscriber) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.RunWithContext(ctx)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestWebhookSubscriber_Delivers(t *testing.T) {
	received := make(chan webhookPayload, 1)
	var auth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		var p webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		received <- p
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	cfg := DefaultWebhookConfig(server.URL)
	cfg.Headers = map[string]string{"Authorization": "Bearer token"}
	w := NewWebhookSubscriber(cfg)
	stop := runWebhook(t, w)
	defer stop()

	if err := w.Notify(context.Background(), models.Alert{ID: "a1", Type: models.AlertIncidentCreated}); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	select {
	case p := <-received:
		if p.Alert.ID != "a1" || p.EventType != "security_alert" || p.Source != "sentinel" {
			t.Errorf("payload = %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not delivered")
	}
	if got, _ := auth.Load().(string); got != "Bearer token" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestWebhookSubscriber_BreakerOpensOnFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	w := NewWebhookSubscriber(WebhookConfig{
		URL:              server.URL,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		QueueSize:        10,
	})
	stop := runWebhook(t, w)
	defer stop()

	for i := 0; i < 4; i++ {
		if err := w.Notify(context.Background(), models.Alert{ID: "x"}); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(w.queue) > 0 || w.BreakerState() != "open" {
		if time.Now().After(deadline) {
			t.Fatalf("breaker state = %s, queued = %d", w.BreakerState(), len(w.queue))
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Give the worker time to reject the remaining queued alert.
	time.Sleep(50 * time.Millisecond)
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2 before the breaker opened", got)
	}
}

func TestWebhookSubscriber_RateLimitSpacesDeliveries(t *testing.T) {
	tests := []struct {
		name      string
		rateLimit time.Duration
		minSpan   time.Duration
	}{
		{"limited", 100 * time.Millisecond, 180 * time.Millisecond},
		{"unlimited", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arrivals := make(chan time.Time, 3)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				arrivals <- time.Now()
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			cfg := DefaultWebhookConfig(server.URL)
			cfg.RateLimit = tt.rateLimit
			w := NewWebhookSubscriber(cfg)
			if (w.limiter != nil) != (tt.rateLimit > 0) {
				t.Fatalf("limiter set = %v for rate limit %s", w.limiter != nil, tt.rateLimit)
			}
			stop := runWebhook(t, w)
			defer stop()

			for i := 0; i < 3; i++ {
				if err := w.Notify(context.Background(), models.Alert{ID: "r"}); err != nil {
					t.Fatalf("Notify: %v", err)
				}
			}
			var times []time.Time
			for len(times) < 3 {
				select {
				case at := <-arrivals:
					times = append(times, at)
				case <-time.After(2 * time.Second):
					t.Fatalf("delivered %d of 3", len(times))
				}
			}
			if span := times[2].Sub(times[0]); span < tt.minSpan {
				t.Errorf("first to third delivery = %s, want at least %s", span, tt.minSpan)
			}
		})
	}
}

func TestWebhookSubscriber_QueueFull(t *testing.T) {
	w := NewWebhookSubscriber(WebhookConfig{URL: "http://127.0.0.1:1", QueueSize: 1})
	if err := w.Notify(context.Background(), models.Alert{}); err != nil {
		t.Fatalf("first Notify: %v", err)
	}
	if err := w.Notify(context.Background(), models.Alert{}); !errors.Is(err, ErrWebhookQueueFull) {
		t.Errorf("second Notify = %v, want ErrWebhookQueueFull", err)
	}
}

func TestPublisherSubscriber_GoChannel(t *testing.T) {
	pubsub := NewGoChannelPublisher()
	defer pubsub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	messages, err := pubsub.Subscribe(ctx, DefaultTopic)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	sub := NewPublisherSubscriber(pubsub, "")
	if err := sub.Notify(ctx, models.Alert{ID: "alert-7", Type: models.AlertTrafficAnomaly, Severity: models.SeverityHigh}); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		a, err := DecodeAlert(msg)
		if err != nil {
			t.Fatal(err)
		}
		if a.ID != "alert-7" || a.Type != models.AlertTrafficAnomaly {
			t.Errorf("decoded alert = %+v", a)
		}
		if msg.Metadata.Get("severity") != string(models.SeverityHigh) {
			t.Errorf("severity metadata = %q", msg.Metadata.Get("severity"))
		}
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}
