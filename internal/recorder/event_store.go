// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package recorder

import (
	"time"

	"github.com/tomtom215/sentinel/internal/cache"
	"github.com/tomtom215/sentinel/internal/models"
)

// EventStore is the bounded, timestamp-ordered buffer of recorded events.
// Values are stored by copy so readers never race with response backfill.
type EventStore struct {
	events *cache.TimedStore[models.SecurityEvent]
	limit  int
}

// NewEventStore creates a store whose soft ceiling is limit.
func NewEventStore(limit int) *EventStore {
	return &EventStore{events: cache.NewTimedStore[models.SecurityEvent](), limit: limit}
}

// Add records evt. It returns models.ErrMemoryLimitExceeded when the store
// is over its ceiling after the insert; the event is kept either way and the
// caller is expected to ask the memory governor for a pass.
func (s *EventStore) Add(evt models.SecurityEvent) error {
	s.events.Put(evt.ID, evt, evt.Timestamp)
	if s.limit > 0 && s.events.Len() > s.limit {
		return models.ErrMemoryLimitExceeded
	}
	return nil
}

// Backfill applies fn to the stored event with the given id.
func (s *EventStore) Backfill(id string, fn func(*models.SecurityEvent)) bool {
	return s.events.Update(id, fn)
}

// Get returns the event with the given id.
func (s *EventStore) Get(id string) (models.SecurityEvent, bool) {
	return s.events.Get(id)
}

// GetMany returns the events for ids that are still buffered, in ids order.
func (s *EventStore) GetMany(ids []string) []models.SecurityEvent {
	out := make([]models.SecurityEvent, 0, len(ids))
	for _, id := range ids {
		if evt, ok := s.events.Get(id); ok {
			out = append(out, evt)
		}
	}
	return out
}

// Since returns events recorded at or after t, oldest first.
func (s *EventStore) Since(t time.Time) []models.SecurityEvent {
	return s.events.Since(t)
}

// All returns every buffered event, oldest first.
func (s *EventStore) All() []models.SecurityEvent {
	return s.events.Values()
}

// Len returns the number of buffered events.
func (s *EventStore) Len() int { return s.events.Len() }

// Limit returns the configured ceiling.
func (s *EventStore) Limit() int { return s.limit }

// TrimTo keeps only the limit most recent events and returns how many were dropped.
func (s *EventStore) TrimTo(limit int) int {
	return len(s.events.TrimTo(limit))
}

// EvictBefore drops events older than t and returns how many were dropped.
func (s *EventStore) EvictBefore(t time.Time) int {
	return len(s.events.EvictBefore(t))
}
