// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package profiler detects drift in per-source and per-endpoint traffic by
// comparing each cycle's aggregates against the previous cycle's profiles.
package profiler
