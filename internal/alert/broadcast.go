// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package alert

import (
	"context"

	"github.com/tomtom215/sentinel/internal/models"
)

// Broadcaster pushes alerts to live dashboard connections.
type Broadcaster interface {
	BroadcastAlert(a models.Alert)
}

// BroadcastSubscriber forwards alerts to a Broadcaster such as the
// websocket hub.
type BroadcastSubscriber struct {
	b Broadcaster
}

// NewBroadcastSubscriber wraps b.
func NewBroadcastSubscriber(b Broadcaster) *BroadcastSubscriber {
	return &BroadcastSubscriber{b: b}
}

// Name implements Subscriber.
func (s *BroadcastSubscriber) Name() string { return "websocket" }

// Notify implements Subscriber.
func (s *BroadcastSubscriber) Notify(_ context.Context, a models.Alert) error {
	s.b.BroadcastAlert(a)
	return nil
}
