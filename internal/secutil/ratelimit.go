// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package secutil

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket is a lazily refilled token bucket. Tokens never go below zero
// and never exceed capacity.
type TokenBucket struct {
	limiter  *rate.Limiter
	capacity int

	mu         sync.Mutex
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket holding capacity tokens and refilling
// at refillPerSecond.
func NewTokenBucket(capacity int, refillPerSecond float64) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	return &TokenBucket{
		limiter:    rate.NewLimiter(rate.Limit(refillPerSecond), capacity),
		capacity:   capacity,
		lastRefill: time.Now(),
	}
}

// TryConsume removes n tokens if available and reports whether it did.
func (b *TokenBucket) TryConsume(n int) bool {
	return b.TryConsumeAt(time.Now(), n)
}

// TryConsumeAt is TryConsume evaluated at t.
func (b *TokenBucket) TryConsumeAt(t time.Time, n int) bool {
	if n <= 0 {
		return true
	}
	ok := b.limiter.AllowN(t, n)

	b.mu.Lock()
	if t.After(b.lastRefill) {
		b.lastRefill = t
	}
	b.mu.Unlock()

	return ok
}

// Remaining returns the tokens currently available.
func (b *TokenBucket) Remaining() float64 {
	return b.RemainingAt(time.Now())
}

// RemainingAt returns the tokens available at t.
func (b *TokenBucket) RemainingAt(t time.Time) float64 {
	return ClampFloat(b.limiter.TokensAt(t), 0, float64(b.capacity))
}

// Capacity returns the bucket size.
func (b *TokenBucket) Capacity() int { return b.capacity }

// LastRefill returns the time of the most recent consumption attempt.
func (b *TokenBucket) LastRefill() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastRefill
}

// Limiter keeps one TokenBucket per source key.
type Limiter struct {
	capacity int
	refill   float64

	mu      sync.Mutex
	buckets map[string]*TokenBucket
}

// NewLimiter creates a per-source limiter. Each new source starts with a
// full bucket of capacity tokens.
func NewLimiter(capacity int, refillPerSecond float64) *Limiter {
	return &Limiter{
		capacity: capacity,
		refill:   refillPerSecond,
		buckets:  make(map[string]*TokenBucket),
	}
}

func (l *Limiter) bucket(source string) *TokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[source]
	if !ok {
		b = NewTokenBucket(l.capacity, l.refill)
		l.buckets[source] = b
	}
	return b
}

// Allow consumes one token from the source's bucket.
func (l *Limiter) Allow(source string) bool {
	return l.bucket(source).TryConsume(1)
}

// Remaining returns the tokens left for source. Unknown sources report a
// full bucket without allocating one.
func (l *Limiter) Remaining(source string) float64 {
	l.mu.Lock()
	b, ok := l.buckets[source]
	l.mu.Unlock()
	if !ok {
		return float64(l.capacity)
	}
	return b.Remaining()
}

// Len returns the number of tracked sources.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// EvictOldest drops the least recently used buckets until at most limit
// remain. It returns how many were dropped.
func (l *Limiter) EvictOldest(limit int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return TrimMapToLimit(l.buckets, limit, (*TokenBucket).LastRefill)
}

// Blocklist holds temporarily blocked sources. It is consulted only when IP
// blocking is enabled; the block-source incident action populates it.
type Blocklist struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]time.Time // source -> expiry
}

// NewBlocklist creates a blocklist whose entries expire after ttl.
func NewBlocklist(ttl time.Duration) *Blocklist {
	return &Blocklist{ttl: ttl, entries: make(map[string]time.Time)}
}

// Block adds source until now+ttl.
func (bl *Blocklist) Block(source string) {
	if source == "" || source == UnknownIP {
		return
	}
	bl.mu.Lock()
	bl.entries[source] = time.Now().Add(bl.ttl)
	bl.mu.Unlock()
}

// IsBlocked reports whether source has an unexpired block.
func (bl *Blocklist) IsBlocked(source string) bool {
	bl.mu.RLock()
	exp, ok := bl.entries[source]
	bl.mu.RUnlock()
	return ok && time.Now().Before(exp)
}

// Len returns the number of entries, expired ones included.
func (bl *Blocklist) Len() int {
	bl.mu.RLock()
	defer bl.mu.RUnlock()
	return len(bl.entries)
}

// TrimTo removes expired entries, then the soonest-expiring ones until at
// most limit remain.
func (bl *Blocklist) TrimTo(limit int) int {
	now := time.Now()
	bl.mu.Lock()
	defer bl.mu.Unlock()
	removed := 0
	for k, exp := range bl.entries {
		if !now.Before(exp) {
			delete(bl.entries, k)
			removed++
		}
	}
	return removed + TrimMapToLimit(bl.entries, limit, func(exp time.Time) time.Time { return exp })
}
