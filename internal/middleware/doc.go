// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package middleware holds the infrastructure middleware shared by the
administration API and the monitored listener.

  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request count, latency and concurrency per chi route
  - InFlight: live request counter used for shutdown reporting

All of them are plain func(http.Handler) http.Handler and compose with
chi's Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.PrometheusMetrics)

Authentication lives in package auth; security screening of monitored
traffic lives in package recorder.
*/
package middleware
