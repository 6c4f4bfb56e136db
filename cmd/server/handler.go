// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package main

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/tomtom215/sentinel/internal/logging"
)

// adminPrefix and metricsPath are served by the administration router; all
// other paths are monitored traffic.
const (
	adminPrefix = "/api/v1/"
	metricsPath = "/metrics"
)

// splitHandler routes on the raw path so the recorder sees traversal
// sequences before any cleaning.
func splitHandler(admin, monitored http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if p == metricsPath || (strings.HasPrefix(p, adminPrefix) && !strings.Contains(p, "..")) {
			admin.ServeHTTP(w, r)
			return
		}
		monitored.ServeHTTP(w, r)
	})
}

// monitoredHandler wraps the upstream reverse proxy, or a plain 404 when no
// upstream is configured, with the security middleware.
func monitoredHandler(upstream string, screen func(http.Handler) http.Handler) (http.Handler, error) {
	if upstream == "" {
		logging.Info().Msg("No upstream configured, unmatched requests are recorded and answered with 404")
		return screen(http.NotFoundHandler()), nil
	}

	target, err := url.Parse(upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q", upstream)
	}
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logging.Ctx(r.Context()).Warn().Err(err).Str("upstream", target.Host).Msg("upstream request failed")
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	logging.Info().Str("upstream", target.String()).Msg("Proxying monitored traffic")
	return screen(proxy), nil
}
