// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package engine assembles the security pipeline from a validated Config.
//
// It owns the event store, rate limiter, blocklist, detectors, analytics,
// profiler, incident orchestrator, memory governor and alert sink, and
// exposes the request middleware plus the background Components that the
// supervisor tree runs. Every finding funnels through HandleFindings.
package engine
