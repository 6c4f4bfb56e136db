// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package metrics provides Prometheus metrics collection and export for observability.

Collectors are registered with promauto at package init and exported as
package-level variables. Components update them through the small Record*
helpers so label sets stay consistent.

# Overview

The package provides metrics for:
  - Recorded events, threat findings and anomalies
  - Requests blocked by the recorder (rate limit, traversal, blocklist)
  - Incident creation, transitions and playbook actions
  - Alert fan-out and subscriber failures
  - Bounded collection sizes and memory governor evictions
  - Administration API latency and throughput
  - Alert stream (WebSocket) connections

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Usage Example

	metrics.RecordThreat(string(finding.Type), string(finding.Severity))
	metrics.RecordEviction("events", len(evicted))

# Thread Safety

All collectors are safe for concurrent use.
*/
package metrics
