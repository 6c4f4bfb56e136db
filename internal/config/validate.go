// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/validation"
)

// Range limits enforced by Validate.
const (
	MinMonitoringInterval  = 100 * time.Millisecond
	MaxMonitoringInterval  = 60 * time.Second
	MinRetentionPeriod     = time.Minute
	MaxRetentionPeriod     = 30 * 24 * time.Hour
	MinJWTSecretLength     = 32
	MinAdminPasswordLength = 8
)

// ValidationResult lists every problem found in a Config.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Check validates the configuration without failing fast.
func (c *Config) Check() ValidationResult {
	var errs []string
	if verr := validation.ValidateStruct(c); verr != nil {
		errs = append(errs, verr.Messages()...)
	}
	errs = append(errs, c.validateMonitoring()...)
	errs = append(errs, c.validateThresholds()...)
	errs = append(errs, c.validateLimits()...)
	errs = append(errs, c.validateIncident()...)
	errs = append(errs, c.validateSecurity()...)
	errs = append(errs, c.validateAlerts()...)
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Validate returns an error wrapping models.ErrInvalidConfig when Check
// finds any problem.
func (c *Config) Validate() error {
	res := c.Check()
	if res.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", models.ErrInvalidConfig, strings.Join(res.Errors, "; "))
}

// RiskThresholds returns the threat level cut-offs.
func (c *Config) RiskThresholds() models.RiskThresholds {
	return models.RiskThresholds{High: c.Thresholds.High, Medium: c.Thresholds.Medium, Low: c.Thresholds.Low}
}

func (c *Config) validateMonitoring() []string {
	var errs []string
	m := c.Monitoring
	if m.Interval < MinMonitoringInterval || m.Interval > MaxMonitoringInterval {
		errs = append(errs, fmt.Sprintf("monitoring.interval must be between %s and %s, got %s",
			MinMonitoringInterval, MaxMonitoringInterval, m.Interval))
	}
	if m.RetentionPeriod < MinRetentionPeriod || m.RetentionPeriod > MaxRetentionPeriod {
		errs = append(errs, fmt.Sprintf("monitoring.retention_period must be between %s and %s, got %s",
			MinRetentionPeriod, MaxRetentionPeriod, m.RetentionPeriod))
	}
	if m.ProfileInterval <= 0 {
		errs = append(errs, "monitoring.profile_interval must be positive")
	}
	return errs
}

func (c *Config) validateThresholds() []string {
	var errs []string
	t := c.Thresholds
	for _, v := range []struct {
		name  string
		value float64
	}{{"high", t.High}, {"medium", t.Medium}, {"low", t.Low}} {
		if v.value < 0 || v.value > 100 {
			errs = append(errs, fmt.Sprintf("thresholds.%s must be between 0 and 100, got %v", v.name, v.value))
		}
	}
	if !(t.High > t.Medium && t.Medium > t.Low) {
		errs = append(errs, fmt.Sprintf("thresholds must satisfy high > medium > low, got %v/%v/%v", t.High, t.Medium, t.Low))
	}
	return errs
}

func (c *Config) validateLimits() []string {
	var errs []string
	l := c.Limits
	for _, v := range []struct {
		name  string
		value int
	}{
		{"max_events", l.MaxEvents},
		{"max_incidents", l.MaxIncidents},
		{"max_indicators", l.MaxIndicators},
		{"max_profiles", l.MaxProfiles},
		{"max_active_incidents", l.MaxActiveIncidents},
		{"max_rate_limit_buckets", l.MaxRateLimitBuckets},
	} {
		if v.value <= 0 {
			errs = append(errs, fmt.Sprintf("limits.%s must be positive, got %d", v.name, v.value))
		}
	}
	if l.SweepInterval <= 0 {
		errs = append(errs, "limits.sweep_interval must be positive")
	}
	if c.RateLimit.EnableIPBlocking && c.RateLimit.BlockDuration <= 0 {
		errs = append(errs, "rate_limit.block_duration must be positive when IP blocking is enabled")
	}
	return errs
}

func (c *Config) validateIncident() []string {
	var errs []string
	i := c.Incident
	if i.CreationThreshold < 0 || i.CreationThreshold > 100 {
		errs = append(errs, fmt.Sprintf("incident.creation_threshold must be between 0 and 100, got %v", i.CreationThreshold))
	}
	if i.CorrelationWindow <= 0 {
		errs = append(errs, "incident.correlation_window must be positive")
	}
	if i.AutoCloseAfter <= 0 || i.AutoCloseInterval <= 0 {
		errs = append(errs, "incident.auto_close_after and incident.auto_close_interval must be positive")
	}
	return errs
}

func (c *Config) validateSecurity() []string {
	var errs []string
	s := c.Security
	switch s.AuthMode {
	case "jwt":
		if len(s.JWTSecret) < MinJWTSecretLength {
			errs = append(errs, fmt.Sprintf("security.jwt_secret must be at least %d characters when auth_mode is jwt", MinJWTSecretLength))
		}
		if s.AdminUsername == "" || s.AdminPassword == "" {
			errs = append(errs, "security.admin_username and security.admin_password are required when auth_mode is jwt")
		}
		if s.SessionTimeout <= 0 {
			errs = append(errs, "security.session_timeout must be positive when auth_mode is jwt")
		}
	case "basic":
		if s.AdminUsername == "" || s.AdminPassword == "" {
			errs = append(errs, "security.admin_username and security.admin_password are required when auth_mode is basic")
		}
	}
	if (s.AuthMode == "jwt" || s.AuthMode == "basic") && s.AdminPassword != "" && len(s.AdminPassword) < MinAdminPasswordLength {
		errs = append(errs, fmt.Sprintf("security.admin_password must be at least %d characters", MinAdminPasswordLength))
	}
	if s.APIRateLimit > 0 && s.APIRateWindow <= 0 {
		errs = append(errs, "security.api_rate_window must be positive when api_rate_limit is set")
	}
	if s.BruteForceThreshold > 0 && s.BruteForceWindow <= 0 {
		errs = append(errs, "security.brute_force_window must be positive when brute_force_threshold is set")
	}
	return errs
}

func (c *Config) validateAlerts() []string {
	n := c.Alerts.NATS
	if !n.Enabled {
		return nil
	}
	var errs []string
	if !n.Embedded && n.URL == "" {
		errs = append(errs, "alerts.nats.url is required when NATS is enabled without the embedded server")
	}
	if n.Embedded && n.StoreDir == "" {
		errs = append(errs, "alerts.nats.store_dir is required for the embedded server")
	}
	if n.Subject == "" || strings.ContainsAny(n.Subject, ". *>") {
		errs = append(errs, "alerts.nats.subject must be a single token without dots, spaces or wildcards")
	}
	return errs
}
