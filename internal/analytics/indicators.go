// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package analytics

import (
	"github.com/tomtom215/sentinel/internal/cache"
	"github.com/tomtom215/sentinel/internal/models"
)

// IndicatorStore holds the latest ThreatIndicator per key, ordered by
// LastUpdated so the governor can drop the stalest first.
type IndicatorStore struct {
	items *cache.TimedStore[models.ThreatIndicator]
}

// NewIndicatorStore creates an empty store.
func NewIndicatorStore() *IndicatorStore {
	return &IndicatorStore{items: cache.NewTimedStore[models.ThreatIndicator]()}
}

// Upsert replaces the indicator stored under ind.Key.
func (s *IndicatorStore) Upsert(ind models.ThreatIndicator) {
	s.items.Put(ind.Key, ind, ind.LastUpdated)
}

// Get returns the indicator for key.
func (s *IndicatorStore) Get(key string) (models.ThreatIndicator, bool) {
	return s.items.Get(key)
}

// All returns every indicator, most recently updated first.
func (s *IndicatorStore) All() []models.ThreatIndicator {
	vals := s.items.Values()
	for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
		vals[i], vals[j] = vals[j], vals[i]
	}
	return vals
}

// Len returns the number of indicators.
func (s *IndicatorStore) Len() int { return s.items.Len() }

// TrimTo keeps the limit most recently updated indicators.
func (s *IndicatorStore) TrimTo(limit int) int {
	return len(s.items.TrimTo(limit))
}
