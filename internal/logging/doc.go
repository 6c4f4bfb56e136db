// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package logging provides centralized zerolog-based structured logging for Sentinel.
//
// # Overview
//
// The package provides:
//   - A global zerolog logger configured once from main via Init
//   - JSON output for production, console output for development
//   - Request and correlation ID propagation through context.Context
//   - Component-scoped child loggers (WithComponent)
//   - An slog.Handler adapter so suture and watermill log through zerolog
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Timestamp: true})
//
//	logging.Info().Str("addr", ":8080").Msg("HTTP server listening")
//	logging.Err(err).Str("subscriber", "webhook").Msg("alert delivery failed")
//	logging.Ctx(ctx).Warn().Msg("rate limit exceeded")
//
// # Configuration
//
// Logging is configured from the logging section of the Sentinel config
// (see internal/config), overridable with LOG_LEVEL, LOG_FORMAT and LOG_CALLER.
//
// # Conventions
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// Never log raw header values or request bodies: use the sanitized
// SecurityEvent fields, which already redact credentials.
package logging
