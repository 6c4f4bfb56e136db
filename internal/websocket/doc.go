// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package websocket streams alerts to dashboards over gorilla/websocket.

A single Hub owns the set of connected clients. Each Client has a write
pump draining its send buffer and a read pump that only watches for close
and pong frames. Broadcasts never block producers: when the hub queue is
full the alert is dropped, and a client whose own buffer is full is
disconnected.

Clients may subscribe with ?min_severity=HIGH to receive only HIGH and
CRITICAL alerts.

The hub runs under the supervisor via RunWithContext; on shutdown every
client is closed and the reason (context_canceled or context_deadline) is
logged.
*/
package websocket
