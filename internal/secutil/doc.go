// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package secutil holds the small primitives every other Sentinel component
// builds on: identifier generation, input sanitization, regex heuristics,
// token-bucket rate limiting and bounded-collection eviction helpers.
//
// Everything here is either a pure function or a self-locking primitive and
// is safe for concurrent use.
//
// The injection heuristics are best-effort. False positives are expected and
// accepted; callers must not treat a negative result as proof of safety.
package secutil
