// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package recorder

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/threat"
)

// DeepScanJob is one request queued for the full detector pass.
type DeepScanJob struct {
	Request threat.ScanRequest
}

// DeepScanner drains the recorder's deep-scan queue with a fixed pool of
// workers. It runs under the supervisor and returns when its context ends.
type DeepScanner struct {
	jobs       <-chan DeepScanJob
	dispatcher *threat.Dispatcher
	sink       ThreatSink
	workers    int
	log        zerolog.Logger
}

// NewDeepScanner creates a scanner for the queue exposed by rec.Jobs().
func NewDeepScanner(jobs <-chan DeepScanJob, dispatcher *threat.Dispatcher, sink ThreatSink, workers int) *DeepScanner {
	if workers < 1 {
		workers = 1
	}
	return &DeepScanner{
		jobs:       jobs,
		dispatcher: dispatcher,
		sink:       sink,
		workers:    workers,
		log:        logging.WithComponent("deep-scan"),
	}
}

// RunWithContext starts the workers and blocks until ctx is canceled.
// A nil queue means deep scanning is disabled and the call just waits.
func (s *DeepScanner) RunWithContext(ctx context.Context) error {
	if s.jobs == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.worker(ctx, id)
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *DeepScanner) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			metrics.DeepScanQueueDepth.Set(float64(len(s.jobs)))
			s.scan(ctx, id, job)
		}
	}
}

// scan runs one job. A panic here is a bug in the dispatcher's walking
// code since per-detector panics are already contained; it is logged and
// the worker keeps going.
func (s *DeepScanner) scan(ctx context.Context, id int, job DeepScanJob) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordDetectorError("deep-scan")
			s.log.Error().Int("worker", id).Str("event_id", job.Request.EventID).
				Str("panic", fmt.Sprint(r)).Msg("deep scan panicked")
		}
	}()

	findings := s.dispatcher.Scan(job.Request)
	if len(findings) == 0 || s.sink == nil {
		return
	}
	s.log.Debug().Str("event_id", job.Request.EventID).Int("findings", len(findings)).Msg("deep scan findings")
	s.sink.HandleFindings(ctx, findings)
}
