// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package websocket

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

func startHub(t *testing.T) (*Hub, context.CancelFunc, <-chan error) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()
	return hub, cancel, done
}

func testClient(hub *Hub, minSeverity models.Severity) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, sendBuffer), minSeverity: minSeverity}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		return msg, ok
	case <-time.After(200 * time.Millisecond):
		return Message{}, false
	}
}

func TestHub_BroadcastAlertRespectsSeverityFilter(t *testing.T) {
	hub, cancel, _ := startHub(t)
	defer cancel()

	all := testClient(hub, "")
	highOnly := testClient(hub, models.SeverityHigh)
	hub.Register <- all
	hub.Register <- highOnly
	waitForClients(t, hub, 2)

	hub.BroadcastAlert(models.Alert{ID: "a1", Type: models.AlertBehavioralAnomaly, Severity: models.SeverityMedium})
	hub.BroadcastAlert(models.Alert{ID: "a2", Type: models.AlertIncidentCreated, Severity: models.SeverityCritical})

	for _, want := range []string{"a1", "a2"} {
		msg, ok := receive(t, all)
		if !ok || msg.Type != MessageTypeAlert || msg.Data.(models.Alert).ID != want {
			t.Fatalf("unfiltered client got %+v, want alert %s", msg, want)
		}
	}

	msg, ok := receive(t, highOnly)
	if !ok || msg.Data.(models.Alert).ID != "a2" {
		t.Fatalf("filtered client got %+v, want a2", msg)
	}
	if extra, ok := receive(t, highOnly); ok {
		t.Errorf("filtered client received MEDIUM alert: %+v", extra)
	}
}

func TestHub_DisconnectsSlowClient(t *testing.T) {
	hub, cancel, _ := startHub(t)
	defer cancel()

	slow := &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message)}
	hub.Register <- slow
	waitForClients(t, hub, 1)

	hub.BroadcastJSON(MessageTypeAlert, "x")
	waitForClients(t, hub, 0)
	if _, ok := <-slow.send; ok {
		t.Error("slow client's channel was not closed")
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewHub() // not running
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.BroadcastJSON(MessageTypeAlert, i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastJSON blocked with a full queue")
	}
}

func TestHub_RunWithContextClosesClients(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		reason  ShutdownReason
	}{
		{"canceled", 0, ShutdownReasonContextCanceled},
		{"deadline", 30 * time.Millisecond, ShutdownReasonContextDeadline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctx context.Context
			var cancel context.CancelFunc
			if tt.timeout > 0 {
				ctx, cancel = context.WithTimeout(context.Background(), tt.timeout)
			} else {
				ctx, cancel = context.WithCancel(context.Background())
			}
			defer cancel()

			hub := NewHub()
			done := make(chan error, 1)
			go func() { done <- hub.RunWithContext(ctx) }()

			c := testClient(hub, "")
			hub.Register <- c
			waitForClients(t, hub, 1)

			if tt.timeout == 0 {
				cancel()
			}
			if err := <-done; err == nil {
				t.Error("RunWithContext returned nil")
			}
			if got := getShutdownReason(ctx); got != tt.reason {
				t.Errorf("reason = %s, want %s", got, tt.reason)
			}
			if hub.ClientCount() != 0 {
				t.Errorf("clients left after shutdown: %d", hub.ClientCount())
			}
			if _, ok := <-c.send; ok {
				t.Error("client channel not closed on shutdown")
			}
		})
	}
}

func TestHandler_StreamsAlerts(t *testing.T) {
	hub, cancel, _ := startHub(t)
	defer cancel()

	server := httptest.NewServer(NewHandler(hub, []string{"https://dash.example"}))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?min_severity=high"

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("connection without Origin was accepted")
	} else if resp != nil {
		resp.Body.Close()
	}

	header := http.Header{"Origin": {"https://dash.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.BroadcastAlert(models.Alert{ID: "low", Severity: models.SeverityLow})
	hub.BroadcastAlert(models.Alert{ID: "crit", Severity: models.SeverityCritical})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame struct {
		Type string       `json:"type"`
		Data models.Alert `json:"data"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Type != MessageTypeAlert || frame.Data.ID != "crit" {
		t.Errorf("first frame = %+v, want the CRITICAL alert", frame)
	}
}

func TestHandler_RejectsBadSeverity(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(NewHub(), []string{"*"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?min_severity=urgent", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMarshalMessage(t *testing.T) {
	b, err := MarshalMessage(Message{Type: MessageTypeAlert, Data: map[string]int{"n": 1}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"type":"alert","data":{"n":1}}` {
		t.Errorf("MarshalMessage = %s", b)
	}
}
