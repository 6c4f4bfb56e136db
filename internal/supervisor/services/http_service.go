// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/sentinel/internal/logging"
)

// HTTPServer matches the *http.Server lifecycle methods.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
}

// InFlightCounter reports requests still being served.
type InFlightCounter interface {
	InFlight() int64
}

// HTTPServerService runs an HTTP server under the supervisor.
//
// On cancellation it calls Shutdown bounded by shutdownTimeout. When the
// timeout expires the remaining requests are logged as abandoned and the
// server is closed.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	inflight        InFlightCounter
	name            string
}

// NewHTTPServerService wraps server. A zero shutdownTimeout defaults to 30s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
	}
}

// WithInFlight reports abandoned requests from c when shutdown times out.
func (h *HTTPServerService) WithInFlight(c InFlightCounter) *HTTPServerService {
	h.inflight = c
	return h
}

// Serve implements suture.Service. http.ErrServerClosed is not an error.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// ctx is already canceled; shutdown gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.abandon(err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPServerService) abandon(shutdownErr error) {
	var abandoned int64
	if h.inflight != nil {
		abandoned = h.inflight.InFlight()
	}
	logging.Warn().
		Err(shutdownErr).
		Dur("timeout", h.shutdownTimeout).
		Int64("abandoned_requests", abandoned).
		Msg("HTTP shutdown timed out, abandoning in-flight requests")
	if err := h.server.Close(); err != nil {
		logging.Error().Err(err).Msg("HTTP server close failed")
	}
}

// String implements fmt.Stringer for suture logging.
func (h *HTTPServerService) String() string {
	return h.name
}
