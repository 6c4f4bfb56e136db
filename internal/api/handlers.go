// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/secutil"
	"github.com/tomtom215/sentinel/internal/validation"
)

// Profile listing bounds.
const (
	DefaultProfileLimit = 100
	MaxProfileLimit     = 1000
	DefaultHistoryLimit = 50

	maxRequestBody = 64 << 10
)

// IncidentService is the incident orchestrator as seen by the API.
type IncidentService interface {
	Active() []*models.Incident
	History(limit int) []*models.Incident
	Get(id string) (*models.Incident, error)
	Resolve(ctx context.Context, id, notes, by string) (*models.Incident, error)
	Escalate(ctx context.Context, id, reason string) (*models.Incident, error)
}

// StatsSource reports the engine counters.
type StatsSource interface {
	Stats() models.Stats
}

// IndicatorSource lists traffic indicators.
type IndicatorSource interface {
	All() []models.ThreatIndicator
}

// ProfileSource lists behavioral profiles.
type ProfileSource interface {
	Recent(limit int) []models.BehavioralProfile
}

// Handler serves the administration endpoints.
type Handler struct {
	incidents  IncidentService
	stats      StatsSource
	indicators IndicatorSource
	profiles   ProfileSource
	auth       *auth.Middleware
	ready      func() bool
	startedAt  time.Time
}

// ResolveRequest is the body of POST /incidents/{id}/resolve.
type ResolveRequest struct {
	Notes      string `json:"notes" validate:"required,max=2000"`
	ResolvedBy string `json:"resolved_by" validate:"omitempty,max=100"`
}

// EscalateRequest is the optional body of POST /incidents/{id}/escalate.
type EscalateRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// LoginResponse carries a session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// HealthLive always answers 200 while the process serves HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respond(w, r).ok(map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// HealthReady answers 503 until the background components are running.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil && !h.ready() {
		respond(w, r).fail(http.StatusServiceUnavailable, CodeUnavailable, "engine not ready", nil)
		return
	}
	respond(w, r).ok(map[string]string{"status": "ready"})
}

// Login issues a session token in jwt mode.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rw := respond(w, r)
	if h.auth == nil || h.auth.Mode() != auth.ModeJWT {
		rw.fail(http.StatusNotFound, CodeNotFound, "login is only available in jwt auth mode", nil)
		return
	}
	var req LoginRequest
	if !decode(rw, &req) {
		return
	}

	token, expires, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		h.auth.ReportFailure(r, req.Username)
		rw.fail(http.StatusUnauthorized, CodeUnauthorized, "invalid username or password", nil)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/api",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	rw.ok(LoginResponse{Token: token, ExpiresAt: expires, Username: req.Username, Role: auth.RoleAdmin})
}

// ActiveIncidents lists incidents that are not closed, newest first.
func (h *Handler) ActiveIncidents(w http.ResponseWriter, r *http.Request) {
	active := h.incidents.Active()
	respond(w, r).list(active, len(active))
}

// IncidentHistory lists closed incidents. ?limit= is clamped to 1..1000.
func (h *Handler) IncidentHistory(w http.ResponseWriter, r *http.Request) {
	rw := respond(w, r)
	limit, ok := queryLimit(rw, DefaultHistoryLimit)
	if !ok {
		return
	}
	history := h.incidents.History(limit)
	rw.list(history, len(history))
}

// GetIncident returns one incident with its timeline.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	rw := respond(w, r)
	inc, err := h.incidents.Get(chi.URLParam(r, "id"))
	if err != nil {
		rw.err(err)
		return
	}
	rw.ok(inc)
}

// ResolveIncident closes an active incident.
func (h *Handler) ResolveIncident(w http.ResponseWriter, r *http.Request) {
	rw := respond(w, r)
	var req ResolveRequest
	if !decode(rw, &req) {
		return
	}
	by := req.ResolvedBy
	if by == "" {
		if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
			by = claims.Username
		}
	}

	inc, err := h.incidents.Resolve(r.Context(), chi.URLParam(r, "id"), req.Notes, by)
	if err != nil {
		rw.err(err)
		return
	}
	rw.ok(inc)
}

// EscalateIncident marks an active incident for manual review.
func (h *Handler) EscalateIncident(w http.ResponseWriter, r *http.Request) {
	rw := respond(w, r)
	var req EscalateRequest
	if r.ContentLength != 0 && !decode(rw, &req) {
		return
	}
	inc, err := h.incidents.Escalate(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		rw.err(err)
		return
	}
	rw.ok(inc)
}

// Stats returns counters, collection sizes and performance figures.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	respond(w, r).ok(h.stats.Stats())
}

// Indicators lists the current traffic indicators.
func (h *Handler) Indicators(w http.ResponseWriter, r *http.Request) {
	all := h.indicators.All()
	respond(w, r).list(all, len(all))
}

// Profiles lists the most recent behavioral profiles.
func (h *Handler) Profiles(w http.ResponseWriter, r *http.Request) {
	rw := respond(w, r)
	limit, ok := queryLimit(rw, DefaultProfileLimit)
	if !ok {
		return
	}
	profiles := h.profiles.Recent(secutil.ClampInt(limit, 1, MaxProfileLimit))
	rw.list(profiles, len(profiles))
}

func queryLimit(rw *responder, def int) (int, bool) {
	raw := rw.r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		rw.fail(http.StatusBadRequest, validation.CodeValidationError, "limit must be an integer",
			map[string]interface{}{"field": "limit"})
		return 0, false
	}
	return n, true
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func decode(rw *responder, dst interface{}) bool {
	body := http.MaxBytesReader(rw.w, rw.r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		rw.fail(http.StatusBadRequest, CodeBadRequest, "invalid JSON body", nil)
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		rw.err(verr)
		return false
	}
	return true
}
