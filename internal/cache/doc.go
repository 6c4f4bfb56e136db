// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package cache provides the timestamp-ordered bounded store behind every
in-memory collection the engine keeps.

# Overview

TimedStore[T] combines a min-heap ordered by timestamp with a key index:

  - Put, Get, Update, Touch and Remove by key
  - Values and Since return snapshots, oldest first
  - TrimTo(limit) evicts the oldest entries until at most limit remain
  - EvictBefore(t) evicts everything older than a retention cutoff

Eviction returns the evicted values so callers can archive or count them.
Entries with identical timestamps are ordered by insertion.

# Usage Example

	events := cache.NewTimedStore[models.SecurityEvent]()
	events.Put(evt.ID, evt, evt.Timestamp)

	// Memory governor pass
	evicted := events.TrimTo(cfg.Limits.MaxEvents)
	metrics.RecordEviction("events", len(evicted))

# Thread Safety

All methods are safe for concurrent use. A single sync.RWMutex guards each
store; snapshot methods take the read lock and copy before sorting.
*/
package cache
