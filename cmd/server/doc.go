// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Command server runs Sentinel.

One HTTP listener serves two kinds of traffic:

  - /api/v1/* and /metrics go to the administration API.
  - Everything else passes through the security middleware and is proxied
    to server.upstream_url. Without an upstream the request is still
    recorded and answered with 404.

Startup order:

 1. Configuration (koanf: defaults, config.yaml or CONFIG_PATH, environment)
 2. Logging (zerolog)
 3. Engine: stores, detectors, analytics, profiler, incidents, alerts
 4. Authentication for the administration API
 5. Supervisor tree (suture) with engine, messaging and api layers

An invalid configuration is fatal.

# Signal Handling

SIGINT and SIGTERM cancel the root context. Background loops stop, and the
HTTP server drains for up to server.shutdown_timeout (30s by default).
Requests still running when the timeout expires are logged as
abandoned_requests and the listener is closed. Services that fail to stop
are listed before exit.
*/
package main
