// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/middleware"
)

// loginRateLimit caps login attempts per address per window.
const (
	loginRateLimit  = 5
	loginRateWindow = 5 * time.Minute
)

// Deps are the collaborators the router serves. AlertStream and Ready are
// optional.
type Deps struct {
	Security    config.SecurityConfig
	Auth        *auth.Middleware
	Incidents   IncidentService
	Stats       StatsSource
	Indicators  IndicatorSource
	Profiles    ProfileSource
	AlertStream http.Handler
	Ready       func() bool
}

// NewRouter builds the administration API handler. It serves /api/v1/* and
// /metrics.
func NewRouter(d Deps) (http.Handler, error) {
	if d.Auth == nil {
		return nil, errors.New("api: auth middleware is required")
	}
	if d.Incidents == nil || d.Stats == nil || d.Indicators == nil || d.Profiles == nil {
		return nil, errors.New("api: incident, stats, indicator and profile sources are required")
	}

	h := &Handler{
		incidents:  d.Incidents,
		stats:      d.Stats,
		indicators: d.Indicators,
		profiles:   d.Profiles,
		auth:       d.Auth,
		ready:      d.Ready,
		startedAt:  time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(d.Security.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.Security.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond(w, r).fail(http.StatusNotFound, CodeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond(w, r).fail(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)

		r.Route("/health", func(r chi.Router) {
			r.Get("/live", h.HealthLive)
			r.Get("/ready", h.HealthReady)
		})

		r.With(rateLimit(loginRateLimit, loginRateWindow, "login")).Post("/auth/login", h.Login)

		r.Route("/security", func(r chi.Router) {
			if d.Security.APIRateLimit > 0 {
				r.Use(rateLimit(d.Security.APIRateLimit, d.Security.APIRateWindow, "security"))
			}
			r.Use(d.Auth.Authenticate)

			r.Get("/incidents", h.ActiveIncidents)
			r.Get("/incidents/history", h.IncidentHistory)
			r.Get("/incidents/{id}", h.GetIncident)
			r.Post("/incidents/{id}/resolve", h.ResolveIncident)
			r.Post("/incidents/{id}/escalate", h.EscalateIncident)
			r.Get("/stats", h.Stats)
			r.Get("/indicators", h.Indicators)
			r.Get("/profiles", h.Profiles)
			if d.AlertStream != nil {
				r.Handle("/alerts/stream", d.AlertStream)
			}
		})
	})

	return r, nil
}

func rateLimit(requests int, window time.Duration, endpoint string) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues(endpoint).Inc()
			respond(w, r).fail(http.StatusTooManyRequests, CodeRateLimited, "too many requests", nil)
		}),
	)
}
