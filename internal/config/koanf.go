// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sentinel/config.yaml",
	"/etc/sentinel/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default returns the built-in configuration. The default jwt auth mode
// still needs a secret and admin credentials before it validates.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Monitoring: MonitoringConfig{
			Interval:                 time.Second,
			EnableThreatDetection:    true,
			EnableAnomalyDetection:   true,
			EnableBehavioralAnalysis: true,
			EnableIncidentResponse:   true,
			RetentionPeriod:          24 * time.Hour,
			ProfileInterval:          30 * time.Second,
		},
		Thresholds: ThresholdConfig{
			High:         75,
			Medium:       50,
			Low:          25,
			PerEventRisk: 50,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			EnableIPBlocking:  true,
			BlockDuration:     15 * time.Minute,
		},
		Limits: LimitsConfig{
			MaxEvents:           10000,
			MaxIncidents:        1000,
			MaxIndicators:       1000,
			MaxProfiles:         5000,
			MaxActiveIncidents:  500,
			MaxRateLimitBuckets: 10000,
			SweepInterval:       30 * time.Second,
		},
		Incident: IncidentConfig{
			CreationThreshold: 70,
			CorrelationWindow: 5 * time.Minute,
			AutoCloseAfter:    24 * time.Hour,
			AutoCloseInterval: time.Hour,
		},
		Recorder: RecorderConfig{
			MaxBodyBytes:    64 << 10,
			DeepScanQueue:   1024,
			DeepScanWorkers: 2,
		},
		Alerts: AlertsConfig{
			Webhook: WebhookConfig{
				RateLimitMs: 1000,
				Timeout:     10 * time.Second,
			},
			NATS: NATSConfig{
				URL:      "nats://127.0.0.1:4222",
				StoreDir: "/data/nats",
				Subject:  "security_alerts",
			},
		},
		Security: SecurityConfig{
			AuthMode:       "jwt",
			SessionTimeout: 24 * time.Hour,
			AdminUsername:  "admin",
			APIRateLimit:   100,
			APIRateWindow:  time.Minute,

			BruteForceThreshold: 5,
			BruteForceWindow:    5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, the config file and the
// environment, in that order of precedence (ENV > File > Defaults), and
// validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when they come
// from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config paths.
var envMappings = map[string]string{
	// Server
	"http_host":        "server.host",
	"http_port":        "server.port",
	"upstream_url":     "server.upstream_url",
	"read_timeout":     "server.read_timeout",
	"write_timeout":    "server.write_timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	// Monitoring
	"monitoring_interval":        "monitoring.interval",
	"enable_threat_detection":    "monitoring.enable_threat_detection",
	"enable_anomaly_detection":   "monitoring.enable_anomaly_detection",
	"enable_behavioral_analysis": "monitoring.enable_behavioral_analysis",
	"enable_incident_response":   "monitoring.enable_incident_response",
	"retention_period":           "monitoring.retention_period",
	"profile_interval":           "monitoring.profile_interval",

	// Thresholds
	"threshold_high":           "thresholds.high",
	"threshold_medium":         "thresholds.medium",
	"threshold_low":            "thresholds.low",
	"threshold_per_event_risk": "thresholds.per_event_risk",

	// Rate limiting
	"rate_limit_rps":     "rate_limit.requests_per_second",
	"rate_limit_burst":   "rate_limit.burst",
	"enable_ip_blocking": "rate_limit.enable_ip_blocking",
	"block_duration":     "rate_limit.block_duration",

	// Memory governor
	"max_events":             "limits.max_events",
	"max_incidents":          "limits.max_incidents",
	"max_indicators":         "limits.max_indicators",
	"max_profiles":           "limits.max_profiles",
	"max_active_incidents":   "limits.max_active_incidents",
	"max_rate_limit_buckets": "limits.max_rate_limit_buckets",
	"sweep_interval":         "limits.sweep_interval",

	// Incidents
	"incident_threshold":           "incident.creation_threshold",
	"incident_correlation_window":  "incident.correlation_window",
	"incident_auto_close_after":    "incident.auto_close_after",
	"incident_auto_close_interval": "incident.auto_close_interval",
	"incident_archive_path":        "incident.archive_path",

	// Recorder
	"max_body_bytes":    "recorder.max_body_bytes",
	"deep_scan_queue":   "recorder.deep_scan_queue",
	"deep_scan_workers": "recorder.deep_scan_workers",

	// Alerts
	"alert_webhook_url":        "alerts.webhook.url",
	"alert_webhook_rate_limit": "alerts.webhook.rate_limit_ms",
	"alert_webhook_timeout":    "alerts.webhook.timeout",
	"nats_enabled":             "alerts.nats.enabled",
	"nats_url":                 "alerts.nats.url",
	"nats_embedded":            "alerts.nats.embedded",
	"nats_store_dir":           "alerts.nats.store_dir",
	"nats_subject":             "alerts.nats.subject",

	// Security
	"auth_mode":             "security.auth_mode",
	"jwt_secret":            "security.jwt_secret",
	"session_timeout":       "security.session_timeout",
	"admin_username":        "security.admin_username",
	"admin_password":        "security.admin_password",
	"cors_origins":          "security.cors_origins",
	"api_rate_limit":        "security.api_rate_limit",
	"api_rate_window":       "security.api_rate_window",
	"brute_force_threshold": "security.brute_force_threshold",
	"brute_force_window":    "security.brute_force_window",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable to its config path.
// Unmapped variables return "" and are skipped so unrelated environment
// does not leak into the configuration.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - MAX_EVENTS -> limits.max_events
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
