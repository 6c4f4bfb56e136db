// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package analytics scores global traffic on a fixed interval.
//
// Each cycle windows the last 60s of recorded events, derives a 0-100 threat
// score from request rate, error rate, suspicious-event count and source
// diversity, and flags absolute anomalies (HIGH_REQUEST_RATE,
// HIGH_ERROR_RATE, SLOW_RESPONSE). A rolling baseline of recent cycle rates
// adds STATISTICAL_SPIKE when the current rate exceeds mean + 3σ.
//
// A score above 50 or any anomaly raises a TRAFFIC_ANOMALY alert and
// forwards a scored finding to the incident orchestrator. The result is
// always written to the global_traffic indicator.
package analytics
