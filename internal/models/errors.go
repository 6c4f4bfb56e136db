// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package models

import "errors"

// Error codes returned to callers and used as API error codes.
const (
	CodeInvalidConfig       = "INVALID_CONFIG"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodePathTraversal       = "PATH_TRAVERSAL"
	CodeInvalidMethod       = "INVALID_METHOD"
	CodeIncidentNotFound    = "INCIDENT_NOT_FOUND"
	CodeMemoryLimitExceeded = "MEMORY_LIMIT_EXCEEDED"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeSourceBlocked       = "SOURCE_BLOCKED"
)

// ErrInvalidConfig is fatal at construction time.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrRateLimitExceeded is returned per request when the source bucket is empty.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// ErrPathTraversal is returned per request when the path escapes its root.
var ErrPathTraversal = errors.New("path traversal detected")

// ErrInvalidMethod is returned per request for unsupported HTTP methods.
var ErrInvalidMethod = errors.New("invalid http method")

// ErrIncidentNotFound is returned by the administration API for unknown ids.
var ErrIncidentNotFound = errors.New("incident not found")

// ErrMemoryLimitExceeded is internal: it triggers an eviction pass and is
// never returned to a request.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// ErrInvalidTransition is returned when a status change is not a forward move.
var ErrInvalidTransition = errors.New("invalid incident status transition")

// ErrSourceBlocked is returned per request while a source is on the blocklist.
var ErrSourceBlocked = errors.New("source temporarily blocked")

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidConfig, CodeInvalidConfig},
	{ErrRateLimitExceeded, CodeRateLimitExceeded},
	{ErrPathTraversal, CodePathTraversal},
	{ErrInvalidMethod, CodeInvalidMethod},
	{ErrIncidentNotFound, CodeIncidentNotFound},
	{ErrMemoryLimitExceeded, CodeMemoryLimitExceeded},
	{ErrInvalidTransition, CodeInvalidTransition},
	{ErrSourceBlocked, CodeSourceBlocked},
}

// Code returns the taxonomy code for err, or "" when err is not one of ours.
func Code(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ""
}
