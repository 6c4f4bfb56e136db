// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package profiler

import (
	"github.com/tomtom215/sentinel/internal/cache"
	"github.com/tomtom215/sentinel/internal/models"
)

// ProfileStore keeps one BehavioralProfile per key ordered by LastSeen.
type ProfileStore struct {
	items *cache.TimedStore[models.BehavioralProfile]
}

// NewProfileStore creates an empty store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{items: cache.NewTimedStore[models.BehavioralProfile]()}
}

// Put overwrites the profile stored under p.Key.
func (s *ProfileStore) Put(p models.BehavioralProfile) {
	s.items.Put(p.Key, p, p.LastSeen)
}

// Get returns the profile for key.
func (s *ProfileStore) Get(key string) (models.BehavioralProfile, bool) {
	return s.items.Get(key)
}

// Recent returns up to limit profiles, most recently seen first. A
// non-positive limit returns all of them.
func (s *ProfileStore) Recent(limit int) []models.BehavioralProfile {
	vals := s.items.Values()
	out := make([]models.BehavioralProfile, 0, len(vals))
	for i := len(vals) - 1; i >= 0; i-- {
		out = append(out, vals[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Len returns the number of profiles.
func (s *ProfileStore) Len() int { return s.items.Len() }

// TrimTo keeps the limit most recently seen profiles.
func (s *ProfileStore) TrimTo(limit int) int {
	return len(s.items.TrimTo(limit))
}
