// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
	Thresholds ThresholdConfig  `koanf:"thresholds"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Limits     LimitsConfig     `koanf:"limits"`
	Incident   IncidentConfig   `koanf:"incident"`
	Recorder   RecorderConfig   `koanf:"recorder"`
	Alerts     AlertsConfig     `koanf:"alerts"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings. When UpstreamURL is set,
// monitored traffic is reverse proxied to it.
type ServerConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	UpstreamURL     string        `koanf:"upstream_url" validate:"omitempty,url"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MonitoringConfig holds the analytics cadence and per-feature switches.
type MonitoringConfig struct {
	Interval                 time.Duration `koanf:"interval"`
	EnableThreatDetection    bool          `koanf:"enable_threat_detection"`
	EnableAnomalyDetection   bool          `koanf:"enable_anomaly_detection"`
	EnableBehavioralAnalysis bool          `koanf:"enable_behavioral_analysis"`
	EnableIncidentResponse   bool          `koanf:"enable_incident_response"`
	RetentionPeriod          time.Duration `koanf:"retention_period"`
	ProfileInterval          time.Duration `koanf:"profile_interval"`
}

// ThresholdConfig holds the risk cut-offs. An event whose risk reaches High
// is CRITICAL, Medium is HIGH, Low is MEDIUM. PerEventRisk marks an event
// suspicious in traffic analytics.
type ThresholdConfig struct {
	High         float64 `koanf:"high"`
	Medium       float64 `koanf:"medium"`
	Low          float64 `koanf:"low"`
	PerEventRisk float64 `koanf:"per_event_risk" validate:"gte=0,lte=100"`
}

// RateLimitConfig holds the per-source token bucket and blocklist settings.
type RateLimitConfig struct {
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int           `koanf:"burst" validate:"gt=0"`
	EnableIPBlocking  bool          `koanf:"enable_ip_blocking"`
	BlockDuration     time.Duration `koanf:"block_duration"`
}

// LimitsConfig holds the memory governor ceilings.
type LimitsConfig struct {
	MaxEvents           int           `koanf:"max_events"`
	MaxIncidents        int           `koanf:"max_incidents"`
	MaxIndicators       int           `koanf:"max_indicators"`
	MaxProfiles         int           `koanf:"max_profiles"`
	MaxActiveIncidents  int           `koanf:"max_active_incidents"`
	MaxRateLimitBuckets int           `koanf:"max_rate_limit_buckets"`
	SweepInterval       time.Duration `koanf:"sweep_interval"`
}

// IncidentConfig holds the orchestrator settings. An empty ArchivePath keeps
// closed incidents in memory only.
type IncidentConfig struct {
	CreationThreshold float64       `koanf:"creation_threshold"`
	CorrelationWindow time.Duration `koanf:"correlation_window"`
	AutoCloseAfter    time.Duration `koanf:"auto_close_after"`
	AutoCloseInterval time.Duration `koanf:"auto_close_interval"`
	ArchivePath       string        `koanf:"archive_path"`
}

// RecorderConfig holds body capture and deep scan settings.
type RecorderConfig struct {
	MaxBodyBytes    int64 `koanf:"max_body_bytes" validate:"gte=0"`
	DeepScanQueue   int   `koanf:"deep_scan_queue" validate:"gte=0"`
	DeepScanWorkers int   `koanf:"deep_scan_workers" validate:"gte=0"`
}

// AlertsConfig holds the optional alert subscribers.
type AlertsConfig struct {
	Webhook WebhookConfig `koanf:"webhook"`
	NATS    NATSConfig    `koanf:"nats"`
}

// WebhookConfig enables webhook delivery when URL is set.
type WebhookConfig struct {
	URL         string            `koanf:"url" validate:"omitempty,url"`
	Headers     map[string]string `koanf:"headers"`
	RateLimitMs int               `koanf:"rate_limit_ms" validate:"gte=0"`
	Timeout     time.Duration     `koanf:"timeout"`
}

// NATSConfig publishes alerts to JetStream. With Embedded set an in-process
// server is started and URL is ignored.
type NATSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URL      string `koanf:"url"`
	Embedded bool   `koanf:"embedded"`
	StoreDir string `koanf:"store_dir"`
	Subject  string `koanf:"subject"`
}

// SecurityConfig holds admin API authentication and CORS settings.
type SecurityConfig struct {
	AuthMode       string        `koanf:"auth_mode" validate:"oneof=none basic jwt"`
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	AdminUsername  string        `koanf:"admin_username"`
	AdminPassword  string        `koanf:"admin_password"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	APIRateLimit   int           `koanf:"api_rate_limit" validate:"gte=0"`
	APIRateWindow  time.Duration `koanf:"api_rate_window"`

	// BruteForceThreshold failed authentications from one address within
	// BruteForceWindow raise a BRUTE_FORCE finding. Zero disables it.
	BruteForceThreshold int           `koanf:"brute_force_threshold" validate:"gte=0"`
	BruteForceWindow    time.Duration `koanf:"brute_force_window"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}
