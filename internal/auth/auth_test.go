// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package auth

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

const testSecret = "0123456789abcdef0123456789abcdef"

func securityConfig(mode string) *config.SecurityConfig {
	return &config.SecurityConfig{
		AuthMode:       mode,
		JWTSecret:      testSecret,
		SessionTimeout: time.Hour,
		AdminUsername:  "admin",
		AdminPassword:  "correct-horse",
	}
}

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func okHandler(t *testing.T, wantUser string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantUser != "" {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || claims.Username != wantUser {
				t.Errorf("claims = %+v, want username %q", claims, wantUser)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m, err := NewJWTManager(securityConfig(ModeJWT))
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	token, expires, err := m.GenerateToken("admin", RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if d := time.Until(expires); d < 59*time.Minute || d > time.Hour {
		t.Errorf("expiry in %s, want about 1h", d)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Username != "admin" || claims.Role != RoleAdmin || claims.Issuer != Issuer {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	m, err := NewJWTManager(securityConfig(ModeJWT))
	if err != nil {
		t.Fatal(err)
	}
	token, _, err := m.GenerateToken("admin", RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("expired", func(t *testing.T) {
		late := *m
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := late.ValidateToken(token); err == nil {
			t.Error("expected expired token to be rejected")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		cfg := securityConfig(ModeJWT)
		cfg.JWTSecret = strings.Repeat("z", 32)
		other, err := NewJWTManager(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := other.ValidateToken(token); err == nil {
			t.Error("expected token signed with another secret to be rejected")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.ValidateToken("not.a.token"); err == nil {
			t.Error("expected malformed token to be rejected")
		}
	})
}

func TestNewJWTManager_ShortSecret(t *testing.T) {
	cfg := securityConfig(ModeJWT)
	cfg.JWTSecret = "short"
	if _, err := NewJWTManager(cfg); err == nil {
		t.Error("expected short secret to be rejected")
	}
}

func TestCredentialChecker(t *testing.T) {
	c, err := NewCredentialChecker("admin", "correct-horse")
	if err != nil {
		t.Fatalf("NewCredentialChecker() error = %v", err)
	}

	tests := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{"valid", basicHeader("admin", "correct-horse"), false},
		{"wrong password", basicHeader("admin", "battery-staple"), true},
		{"wrong user", basicHeader("root", "correct-horse"), true},
		{"bearer scheme", "Bearer abc", true},
		{"bad base64", "Basic !!!", true},
		{"no colon", "Basic " + base64.StdEncoding.EncodeToString([]byte("admin")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := c.CheckHeader(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckHeader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && user != "admin" {
				t.Errorf("CheckHeader() user = %q", user)
			}
		})
	}

	if err := c.Check("admin", "nope-nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Check() error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := NewCredentialChecker("admin", "short"); err == nil {
		t.Error("expected short password to be rejected")
	}
}

func TestMiddleware_None(t *testing.T) {
	m, err := NewMiddleware(securityConfig(ModeNone))
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	m.Authenticate(okHandler(t, "")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestMiddleware_Basic(t *testing.T) {
	m, err := NewMiddleware(securityConfig(ModeBasic))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Login("admin", "correct-horse"); err == nil {
		t.Error("Login() should be unavailable in basic mode")
	}

	tests := []struct {
		name      string
		header    string
		want      int
		challenge bool
	}{
		{"valid", basicHeader("admin", "correct-horse"), http.StatusNoContent, false},
		{"missing", "", http.StatusUnauthorized, true},
		{"wrong", basicHeader("admin", "wrong-pass"), http.StatusUnauthorized, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			m.Authenticate(okHandler(t, "admin")).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if got := rec.Header().Get("WWW-Authenticate") != ""; got != tt.challenge {
				t.Errorf("challenge present = %v, want %v", got, tt.challenge)
			}
		})
	}
}

func TestMiddleware_FailureHook(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		header string
		want   []string
	}{
		{"basic wrong password", ModeBasic, basicHeader("admin", "wrong-pass"), []string{"admin"}},
		{"basic unknown user", ModeBasic, basicHeader("root", "toor"), []string{"root"}},
		{"basic missing header", ModeBasic, "", nil},
		{"basic valid", ModeBasic, basicHeader("admin", "correct-horse"), nil},
		{"jwt forged token", ModeJWT, "Bearer not.a.token", []string{""}},
		{"jwt missing token", ModeJWT, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			hook := func(r *http.Request, username string) {
				if r == nil {
					t.Error("hook got nil request")
				}
				got = append(got, username)
			}
			m, err := NewMiddleware(securityConfig(tt.mode), WithFailureHook(hook))
			if err != nil {
				t.Fatal(err)
			}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			m.Authenticate(okHandler(t, "")).ServeHTTP(httptest.NewRecorder(), req)
			if len(got) != len(tt.want) {
				t.Fatalf("hook calls = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("hook[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMiddleware_ReportFailureWithoutHook(t *testing.T) {
	m, err := NewMiddleware(securityConfig(ModeNone))
	if err != nil {
		t.Fatal(err)
	}
	m.ReportFailure(httptest.NewRequest(http.MethodGet, "/", nil), "admin")
}

func TestMiddleware_JWT(t *testing.T) {
	m, err := NewMiddleware(securityConfig(ModeJWT))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Login("admin", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login() with bad password error = %v", err)
	}
	token, _, err := m.Login("admin", "correct-horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"bearer", "Bearer " + token, "", http.StatusNoContent},
		{"cookie", "", token, http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + token, "", http.StatusUnauthorized},
		{"tampered", "Bearer " + token + "x", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			m.Authenticate(okHandler(t, "admin")).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Code == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"UNAUTHORIZED"`) {
				t.Errorf("401 body = %s", rec.Body.String())
			}
		})
	}
}

func TestNewMiddleware_UnknownMode(t *testing.T) {
	if _, err := NewMiddleware(securityConfig("oauth")); err == nil {
		t.Error("expected unknown mode to be rejected")
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler(t, "")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on plain HTTP request")
	}
}
