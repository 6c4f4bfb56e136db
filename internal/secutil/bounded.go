// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package secutil

import (
	"sort"
	"time"
)

// ExceedsMapLimit reports whether m holds more than limit entries.
func ExceedsMapLimit[K comparable, V any](m map[K]V, limit int) bool {
	return len(m) > limit
}

// TrimMapToLimit deletes the entries with the oldest timestamps until m holds
// at most limit entries, and returns the number deleted. The caller must hold
// whatever lock guards m.
func TrimMapToLimit[K comparable, V any](m map[K]V, limit int, ts func(V) time.Time) int {
	if limit < 0 {
		limit = 0
	}
	excess := len(m) - limit
	if excess <= 0 {
		return 0
	}

	type aged struct {
		key K
		at  time.Time
	}
	entries := make([]aged, 0, len(m))
	for k, v := range m {
		entries = append(entries, aged{key: k, at: ts(v)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })

	for _, e := range entries[:excess] {
		delete(m, e.key)
	}
	return excess
}
