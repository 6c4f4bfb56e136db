// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tomtom215/sentinel/internal/api"
	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/engine"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/middleware"
	"github.com/tomtom215/sentinel/internal/supervisor"
	"github.com/tomtom215/sentinel/internal/supervisor/services"
	ws "github.com/tomtom215/sentinel/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Str("upstream", cfg.Server.UpstreamURL).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting Sentinel")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Sentinel stopped with error")
	}
	logging.Info().Msg("Sentinel stopped gracefully")
}

func run(cfg *config.Config) error {
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eng.Close(closeCtx); err != nil {
			logging.Error().Err(err).Msg("Engine close failed")
		}
	}()

	authMW, err := auth.NewMiddleware(&cfg.Security, auth.WithFailureHook(eng.RecordAuthFailure))
	if err != nil {
		return err
	}

	var ready atomic.Bool
	admin, err := api.NewRouter(api.Deps{
		Security:    cfg.Security,
		Auth:        authMW,
		Incidents:   eng.Incidents(),
		Stats:       eng,
		Indicators:  eng.Indicators(),
		Profiles:    eng.Profiles(),
		AlertStream: ws.NewHandler(eng.Hub(), cfg.Security.CORSOrigins),
		Ready:       ready.Load,
	})
	if err != nil {
		return err
	}

	monitored, err := monitoredHandler(cfg.Server.UpstreamURL, eng.Middleware)
	if err != nil {
		return err
	}

	inflight := &middleware.InFlight{}
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           inflight.Wrap(splitHandler(admin, monitored)),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       2 * cfg.Server.ReadTimeout,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return err
	}
	for _, c := range eng.Components() {
		tree.AddEngineService(services.NewRunnerService(c.Name, c.Runner))
	}
	for _, c := range eng.MessagingComponents() {
		tree.AddMessagingService(services.NewRunnerService(c.Name, c.Runner))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout).WithInFlight(inflight))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	errCh := tree.ServeBackground(ctx)
	ready.Store(true)
	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree started")

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	ready.Store(false)

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	return nil
}
