// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package cache

import (
	"sort"
	"sync"
	"time"
)

// Entry is a keyed value in a TimedStore.
type Entry[T any] struct {
	Key       string
	Value     T
	Timestamp time.Time

	seq   uint64 // insertion order, breaks timestamp ties
	index int    // position in the heap slice
}

// TimedStore is a keyed collection ordered by timestamp.
//
// A min-heap keeps the oldest entry at the root so eviction is O(log n), and a
// parallel map gives O(1) key lookup. Every bounded collection in the engine
// (events, incidents, indicators, profiles) is a TimedStore, which makes
// "evict oldest until under the limit" a single call.
type TimedStore[T any] struct {
	mu    sync.RWMutex
	heap  []*Entry[T]
	byKey map[string]*Entry[T]
	seq   uint64
}

// NewTimedStore creates an empty store.
func NewTimedStore[T any]() *TimedStore[T] {
	return &TimedStore[T]{
		heap:  make([]*Entry[T], 0),
		byKey: make(map[string]*Entry[T]),
	}
}

// Put inserts or replaces the value stored under key.
func (s *TimedStore[T]) Put(key string, value T, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.byKey[key]; ok {
		e.Value = value
		e.Timestamp = ts
		s.fix(e.index)
		return
	}

	s.seq++
	e := &Entry[T]{Key: key, Value: value, Timestamp: ts, seq: s.seq, index: len(s.heap)}
	s.heap = append(s.heap, e)
	s.byKey[key] = e
	s.bubbleUp(e.index)
}

// PutIfAbsent inserts value under key unless key is already present. It
// reports whether the value was inserted.
func (s *TimedStore[T]) PutIfAbsent(key string, value T, ts time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byKey[key]; ok {
		return false
	}
	s.seq++
	e := &Entry[T]{Key: key, Value: value, Timestamp: ts, seq: s.seq, index: len(s.heap)}
	s.heap = append(s.heap, e)
	s.byKey[key] = e
	s.bubbleUp(e.index)
	return true
}

// Get returns the value stored under key.
func (s *TimedStore[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byKey[key]
	if !ok {
		var zero T
		return zero, false
	}
	return e.Value, true
}

// Update applies fn to the value under key while holding the write lock.
// The timestamp is left unchanged. It returns false for unknown keys.
func (s *TimedStore[T]) Update(key string, fn func(*T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byKey[key]
	if !ok {
		return false
	}
	fn(&e.Value)
	return true
}

// Touch moves key to a new timestamp.
func (s *TimedStore[T]) Touch(key string, ts time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byKey[key]
	if !ok {
		return false
	}
	e.Timestamp = ts
	s.fix(e.index)
	return true
}

// Remove deletes key and returns its value.
func (s *TimedStore[T]) Remove(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byKey[key]
	if !ok {
		var zero T
		return zero, false
	}
	return s.removeAt(e.index).Value, true
}

// Len returns the number of entries.
func (s *TimedStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.heap)
}

// Values returns all values, oldest first.
func (s *TimedStore[T]) Values() []T {
	return s.Since(time.Time{})
}

// Since returns the values with a timestamp at or after t, oldest first.
// Entries are copied under the read lock so later updates do not race with
// the caller.
func (s *TimedStore[T]) Since(t time.Time) []T {
	s.mu.RLock()
	snap := make([]Entry[T], 0, len(s.heap))
	for _, e := range s.heap {
		if !e.Timestamp.Before(t) {
			snap = append(snap, Entry[T]{Value: e.Value, Timestamp: e.Timestamp, seq: e.seq})
		}
	}
	s.mu.RUnlock()

	sort.Slice(snap, func(i, j int) bool { return less(&snap[i], &snap[j]) })
	out := make([]T, len(snap))
	for i := range snap {
		out[i] = snap[i].Value
	}
	return out
}

// TrimTo evicts the oldest entries until at most limit remain and returns
// the evicted values, oldest first.
func (s *TimedStore[T]) TrimTo(limit int) []T {
	if limit < 0 {
		limit = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []T
	for len(s.heap) > limit {
		evicted = append(evicted, s.removeAt(0).Value)
	}
	return evicted
}

// EvictBefore removes every entry older than t and returns the evicted
// values, oldest first.
func (s *TimedStore[T]) EvictBefore(t time.Time) []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []T
	for len(s.heap) > 0 && s.heap[0].Timestamp.Before(t) {
		evicted = append(evicted, s.removeAt(0).Value)
	}
	return evicted
}

// Clear removes all entries.
func (s *TimedStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heap = make([]*Entry[T], 0)
	s.byKey = make(map[string]*Entry[T])
}

// Heap maintenance. Callers hold s.mu.

func less[T any](a, b *Entry[T]) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.seq < b.seq
	}
	return a.Timestamp.Before(b.Timestamp)
}

func (s *TimedStore[T]) removeAt(i int) *Entry[T] {
	n := len(s.heap) - 1
	e := s.heap[i]
	delete(s.byKey, e.Key)

	if i == n {
		s.heap = s.heap[:n]
		return e
	}

	s.heap[i] = s.heap[n]
	s.heap[i].index = i
	s.heap = s.heap[:n]
	s.fix(i)
	return e
}

func (s *TimedStore[T]) fix(i int) {
	if !s.bubbleUp(i) {
		s.bubbleDown(i)
	}
}

func (s *TimedStore[T]) bubbleUp(i int) bool {
	moved := false
	for i > 0 {
		parent := (i - 1) / 2
		if !less(s.heap[i], s.heap[parent]) {
			break
		}
		s.swap(i, parent)
		i = parent
		moved = true
	}
	return moved
}

func (s *TimedStore[T]) bubbleDown(i int) {
	n := len(s.heap)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2
		if left < n && less(s.heap[left], s.heap[smallest]) {
			smallest = left
		}
		if right < n && less(s.heap[right], s.heap[smallest]) {
			smallest = right
		}
		if smallest == i {
			return
		}
		s.swap(i, smallest)
		i = smallest
	}
}

func (s *TimedStore[T]) swap(i, j int) {
	s.heap[i], s.heap[j] = s.heap[j], s.heap[i]
	s.heap[i].index = i
	s.heap[j].index = j
}
