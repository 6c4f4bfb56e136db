// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package services

import (
	"context"
)

// Runner matches the RunWithContext loop every background component
// implements: analytics, profiler, governor, deep scan, incident
// auto-close, the websocket hub and the alert webhook.
type Runner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService adapts a Runner to suture.Service.
//
// Example usage:
//
//	svc := services.NewRunnerService("traffic-analytics", analyticsEngine)
//	tree.AddEngineService(svc)
type RunnerService struct {
	runner Runner
	name   string
}

// NewRunnerService wraps runner under name.
func NewRunnerService(name string, runner Runner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve implements suture.Service. It returns ctx.Err() on normal shutdown;
// any other return makes the supervisor restart the runner.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture logging.
func (s *RunnerService) String() string {
	return s.name
}
