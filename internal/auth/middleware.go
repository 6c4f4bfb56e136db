// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/logging"
)

// Authentication modes accepted in security.auth_mode.
const (
	ModeNone  = "none"
	ModeBasic = "basic"
	ModeJWT   = "jwt"
)

// RoleAdmin is the only role the administration API knows.
const RoleAdmin = "admin"

// TokenCookie is the cookie read when no Authorization header is sent.
const TokenCookie = "token"

type contextKey string

const claimsContextKey contextKey = "claims"

// ClaimsFromContext returns the claims the middleware attached to the
// request context.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*Claims)
	return c, ok
}

// FailureHook is told about every rejected credential.
type FailureHook func(r *http.Request, username string)

// Option configures a Middleware.
type Option func(*Middleware)

// WithFailureHook reports rejected credentials to fn.
func WithFailureHook(fn FailureHook) Option {
	return func(m *Middleware) { m.onFailure = fn }
}

// Middleware gates the administration API.
type Middleware struct {
	mode      string
	jwt       *JWTManager
	creds     *CredentialChecker
	onFailure FailureHook
}

// NewMiddleware builds the middleware for cfg.AuthMode. Basic and jwt
// modes need the admin credentials; jwt also needs a valid secret.
func NewMiddleware(cfg *config.SecurityConfig, opts ...Option) (*Middleware, error) {
	m := &Middleware{mode: cfg.AuthMode}
	for _, opt := range opts {
		opt(m)
	}
	switch cfg.AuthMode {
	case ModeNone, "":
		m.mode = ModeNone
		logging.Warn().Msg("Administration API authentication is disabled")
		return m, nil
	case ModeBasic, ModeJWT:
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}

	creds, err := NewCredentialChecker(cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("admin credentials: %w", err)
	}
	m.creds = creds

	if m.mode == ModeJWT {
		jm, err := NewJWTManager(cfg)
		if err != nil {
			return nil, err
		}
		m.jwt = jm
	}
	return m, nil
}

// Mode returns the active authentication mode.
func (m *Middleware) Mode() string { return m.mode }

// ReportFailure passes a rejected credential to the failure hook, if any.
func (m *Middleware) ReportFailure(r *http.Request, username string) {
	if m.onFailure != nil {
		m.onFailure(r, username)
	}
}

// Login exchanges the admin credentials for a session token. It is only
// available in jwt mode.
func (m *Middleware) Login(username, password string) (string, time.Time, error) {
	if m.jwt == nil {
		return "", time.Time{}, fmt.Errorf("login requires auth mode %q", ModeJWT)
	}
	if err := m.creds.Check(username, password); err != nil {
		logging.Warn().Str("username", username).Msg("Failed admin login")
		return "", time.Time{}, err
	}
	return m.jwt.GenerateToken(username, RoleAdmin)
}

// Authenticate rejects unauthenticated requests with 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch m.mode {
		case ModeNone:
			next.ServeHTTP(w, r)
		case ModeBasic:
			m.basic(w, r, next)
		default:
			m.bearer(w, r, next)
		}
	})
}

func (m *Middleware) basic(w http.ResponseWriter, r *http.Request, next http.Handler) {
	header := r.Header.Get("Authorization")
	if header == "" {
		w.Header().Set("WWW-Authenticate", WWWAuthenticate)
		unauthorized(w, "authentication required")
		return
	}
	username, err := m.creds.CheckHeader(header)
	if err != nil {
		logging.Debug().Err(err).Msg("Basic auth rejected")
		user, _, _ := r.BasicAuth()
		m.ReportFailure(r, user)
		w.Header().Set("WWW-Authenticate", WWWAuthenticate)
		unauthorized(w, "invalid credentials")
		return
	}
	claims := &Claims{Username: username, Role: RoleAdmin}
	next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey, claims)))
}

func (m *Middleware) bearer(w http.ResponseWriter, r *http.Request, next http.Handler) {
	token, err := extractToken(r)
	if err != nil {
		unauthorized(w, err.Error())
		return
	}
	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		logging.Debug().Err(err).Msg("Token rejected")
		m.ReportFailure(r, "")
		unauthorized(w, "invalid token")
		return
	}
	next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey, claims)))
}

func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		cookie, err := r.Cookie(TokenCookie)
		if err != nil || cookie.Value == "" {
			return "", fmt.Errorf("missing token")
		}
		return cookie.Value, nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return token, nil
}

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func unauthorized(w http.ResponseWriter, message string) {
	var body errorBody
	body.Error.Code = "UNAUTHORIZED"
	body.Error.Message = message
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode 401 response")
	}
}

// SecurityHeaders sets the response headers every administration endpoint
// carries. The API serves no HTML, so the content policy denies everything.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}
