// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package alert

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
)

// LogSubscriber writes every alert to the structured log. HIGH and CRITICAL
// alerts are logged at warn level, the rest at info.
type LogSubscriber struct {
	log zerolog.Logger
}

// NewLogSubscriber creates a LogSubscriber on the global logger.
func NewLogSubscriber() *LogSubscriber {
	return &LogSubscriber{log: logging.WithComponent("alerts")}
}

// Name implements Subscriber.
func (l *LogSubscriber) Name() string { return "log" }

// Notify implements Subscriber.
func (l *LogSubscriber) Notify(_ context.Context, a models.Alert) error {
	evt := l.log.Info()
	if a.Severity.AtLeast(models.SeverityHigh) {
		evt = l.log.Warn()
	}
	evt = evt.Str("alert_id", a.ID).
		Str("alert_type", string(a.Type)).
		Str("severity", string(a.Severity)).
		Time("alert_time", a.Timestamp)
	if a.Priority != "" {
		evt = evt.Str("priority", a.Priority)
	}
	evt.Interface("payload", a.Payload).Msg("security alert")
	return nil
}
