// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/tomtom215/sentinel/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

func named(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Handler", name)
	})
}

func TestSplitHandler(t *testing.T) {
	h := splitHandler(named("admin"), named("monitored"))

	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/security/stats", "admin"},
		{"/metrics", "admin"},
		{"/api/v1/../../etc/passwd", "monitored"},
		{"/api/v2/anything", "monitored"},
		{"/", "monitored"},
		{"/login", "monitored"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.URL.Path = tt.path
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got := rec.Header().Get("X-Handler"); got != tt.want {
				t.Errorf("%s routed to %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func countingScreen(n *atomic.Int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n.Add(1)
			next.ServeHTTP(w, r)
		})
	}
}

func TestMonitoredHandler_NoUpstream(t *testing.T) {
	var screened atomic.Int64
	h, err := monitoredHandler("", countingScreen(&screened))
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if rec.Code != http.StatusNotFound || screened.Load() != 1 {
		t.Errorf("status = %d, screened = %d", rec.Code, screened.Load())
	}
}

func TestMonitoredHandler_ProxiesUpstream(t *testing.T) {
	var gotPath, gotForwarded string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotForwarded = r.Header.Get("X-Forwarded-For")
		w.WriteHeader(http.StatusTeapot)
	}))
	defer upstream.Close()

	var screened atomic.Int64
	h, err := monitoredHandler(upstream.URL, countingScreen(&screened))
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/7", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want upstream 418", rec.Code)
	}
	if gotPath != "/orders/7" || gotForwarded == "" || screened.Load() != 1 {
		t.Errorf("path = %q, forwarded = %q, screened = %d", gotPath, gotForwarded, screened.Load())
	}
}

func TestMonitoredHandler_InvalidUpstream(t *testing.T) {
	if _, err := monitoredHandler("not a url", countingScreen(new(atomic.Int64))); err == nil {
		t.Error("expected invalid upstream to be rejected")
	}
}
