// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package recorder turns inbound HTTP requests into SecurityEvents.

The Recorder middleware runs in front of every handler it wraps:

 1. The client address is sanitized and checked against the optional
    blocklist and the per-source token bucket (429 on exhaustion).
 2. The method is validated and the path normalized. Traversal attempts are
    refused with 400 and forwarded as a PATH_TRAVERSAL finding.
 3. The quick scanner runs and its findings go straight to the ThreatSink.
 4. The event is stored, the body is captured for the deep-scan queue and
    the request is handed to the next handler.
 5. Once the response is written, status, size and latency are backfilled
    and the event's risk score and threat level are derived.

DeepScanner drains the deep-scan queue with a small worker pool so the full
detector pass never adds latency to the request path. A full queue drops
the job and counts it.

EventStore is the bounded, timestamp-ordered event buffer read by the
analytics engine, the behavioral profiler and incident evidence collection.
*/
package recorder
