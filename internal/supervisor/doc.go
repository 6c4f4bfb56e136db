// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package supervisor runs Sentinel's background loops under suture v4.

Services are grouped into three layers so a failure in one area is
restarted in isolation:

  - engine-layer: memory governor, deep scan workers, traffic analytics,
    behavioral profiler and incident auto-close
  - messaging-layer: websocket alert hub and the alert webhook
  - api-layer: the HTTP server

Restart policy (TreeConfig):

	FailureThreshold: 5     failures before backoff
	FailureDecay:     30    seconds to forget a failure
	FailureBackoff:   15s   pause once the threshold is hit
	ShutdownTimeout:  30s   per service on shutdown

Supervisor events are logged through sutureslog with the application's
slog bridge:

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddEngineService(services.NewRunnerService("memory-governor", gov))
	errCh := tree.ServeBackground(ctx)

Services that ignore cancellation are reported by UnstoppedServiceReport
after shutdown.
*/
package supervisor
