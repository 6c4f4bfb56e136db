// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package alert delivers security alerts to registered subscribers.

A Sink fans every alert out synchronously. Each subscriber runs inside its
own recover, so a failing or panicking subscriber is logged and counted in
sentinel_alert_subscriber_failures_total without affecting the others.

Built-in subscribers:

  - LogSubscriber writes alerts to the structured log
  - WebhookSubscriber queues alerts and POSTs them as JSON behind a
    circuit breaker, spaced by a minimum interval
  - PublisherSubscriber publishes alerts as watermill messages, either
    in-process (gochannel) or to NATS JetStream
  - BroadcastSubscriber pushes alerts to websocket dashboards

WebhookSubscriber.RunWithContext must be running for webhook alerts to be
delivered; the supervisor tree runs it as a service.
*/
package alert
