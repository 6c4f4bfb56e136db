// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package governor keeps every bounded collection under its ceiling.
package governor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
)

// Collection is one bounded collection. TrimTo keeps the Limit most recent
// entries and returns how many were evicted.
type Collection struct {
	Name   string
	Limit  int
	Len    func() int
	TrimTo func(limit int) int
}

// RetentionFunc evicts entries older than cutoff and returns how many were evicted.
type RetentionFunc func(cutoff time.Time) int

// Config configures the Governor.
type Config struct {
	Interval  time.Duration
	Retention time.Duration
}

// Result summarizes one sweep.
type Result struct {
	Evicted map[string]int
	Sizes   map[string]int
}

// Governor periodically trims registered collections and can be asked for
// an immediate pass through Trigger.
type Governor struct {
	cfg     Config
	log     zerolog.Logger
	trigger chan struct{}

	mu          sync.Mutex
	collections []Collection
	retention   map[string]RetentionFunc

	cleanups atomic.Int64
	evicted  atomic.Int64
}

// New creates a Governor. A zero Interval defaults to 30s.
func New(cfg Config) *Governor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Governor{
		cfg:       cfg,
		log:       logging.WithComponent("governor"),
		trigger:   make(chan struct{}, 1),
		retention: make(map[string]RetentionFunc),
	}
}

// Register adds a collection. Limits of zero or less disable trimming.
func (g *Governor) Register(c Collection) {
	g.mu.Lock()
	g.collections = append(g.collections, c)
	g.mu.Unlock()
}

// RegisterRetention evicts by age for the named collection on every sweep.
func (g *Governor) RegisterRetention(name string, fn RetentionFunc) {
	g.mu.Lock()
	g.retention[name] = fn
	g.mu.Unlock()
}

// Trigger requests a sweep. It never blocks; requests made while one is
// pending are coalesced.
func (g *Governor) Trigger() {
	select {
	case g.trigger <- struct{}{}:
	default:
	}
}

// RunWithContext sweeps every Interval and on each Trigger until ctx is canceled.
func (g *Governor) RunWithContext(ctx context.Context) error {
	g.log.Info().Dur("interval", g.cfg.Interval).Dur("retention", g.cfg.Retention).Msg("memory governor started")
	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.log.Info().Msg("memory governor stopped")
			return ctx.Err()
		case now := <-ticker.C:
			g.safeSweep(now)
		case <-g.trigger:
			g.safeSweep(time.Now())
		}
	}
}

func (g *Governor) safeSweep(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordDetectorError("governor")
			g.log.Error().Str("panic", fmt.Sprint(r)).Msg("memory sweep panicked")
		}
	}()
	g.Sweep(now)
}

// Sweep runs one pass as of now: age-based eviction first, then every
// collection is trimmed to its limit.
func (g *Governor) Sweep(now time.Time) Result {
	g.mu.Lock()
	collections := append([]Collection(nil), g.collections...)
	retention := make(map[string]RetentionFunc, len(g.retention))
	for k, v := range g.retention {
		retention[k] = v
	}
	g.mu.Unlock()

	res := Result{Evicted: map[string]int{}, Sizes: map[string]int{}}
	if g.cfg.Retention > 0 {
		cutoff := now.Add(-g.cfg.Retention)
		for name, fn := range retention {
			if n := fn(cutoff); n > 0 {
				res.Evicted[name] += n
			}
		}
	}

	for _, c := range collections {
		if c.Limit > 0 && c.TrimTo != nil {
			if n := c.TrimTo(c.Limit); n > 0 {
				res.Evicted[c.Name] += n
			}
		}
		if c.Len != nil {
			size := c.Len()
			res.Sizes[c.Name] = size
			metrics.UpdateCollectionSize(c.Name, size)
		}
	}

	total := 0
	for name, n := range res.Evicted {
		metrics.RecordEviction(name, n)
		total += n
	}
	g.evicted.Add(int64(total))
	g.cleanups.Add(1)
	metrics.MemoryCleanups.Inc()

	if total > 0 {
		g.log.Info().Int("evicted", total).Interface("by_collection", res.Evicted).Msg("memory sweep evicted entries")
	} else {
		g.log.Debug().Msg("memory sweep complete")
	}
	return res
}

// Cleanups returns the number of sweeps run.
func (g *Governor) Cleanups() int64 { return g.cleanups.Load() }

// Evicted returns the total number of entries evicted.
func (g *Governor) Evicted() int64 { return g.evicted.Load() }
