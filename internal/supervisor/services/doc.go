// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package services provides suture.Service wrappers for Sentinel components.

Each wrapper implements suture's Service interface plus fmt.Stringer so the
supervisor can name it in log messages:

	type Service interface {
	    Serve(ctx context.Context) error
	}

RunnerService adapts any component with a RunWithContext loop. The
analytics engine, profiler, memory governor, deep scanner, incident
orchestrator, websocket hub and alert webhook all use it.

HTTPServerService translates http.Server's blocking ListenAndServe into
Serve. Shutdown is bounded; requests still in flight when the bound
expires are logged as abandoned_requests and the server is closed.
*/
package services
