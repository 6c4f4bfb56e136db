// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
)

// Ingest feeds an event observed outside the HTTP middleware, such as one
// from a narrow single-purpose detector, through the same pipeline. Missing
// IDs and timestamps are filled in, and every finding is stamped with the
// event's ID and source when it has none.
func (e *Engine) Ingest(ctx context.Context, evt models.SecurityEvent, findings []models.ThreatFinding) string {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	if evt.ThreatLevel == "" {
		evt.ThreatLevel = e.cfg.RiskThresholds().Level(evt.RiskScore)
	}
	evt.Processed = true

	if err := e.events.Add(evt); errors.Is(err, models.ErrMemoryLimitExceeded) {
		e.governor.Trigger()
	}
	e.ingested.Add(1)
	metrics.EventsTotal.Inc()

	for i := range findings {
		f := &findings[i]
		if f.EventID == "" {
			f.EventID = evt.ID
		}
		if f.SourceIP == "" {
			f.SourceIP = evt.SourceIP
		}
		if f.Timestamp.IsZero() {
			f.Timestamp = evt.Timestamp
		}
	}
	e.HandleFindings(ctx, findings)
	return evt.ID
}
