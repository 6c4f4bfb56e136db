// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package config loads and validates Sentinel's configuration.

Values are layered with Koanf: built-in defaults, then an optional YAML file
(CONFIG_PATH, config.yaml or /etc/sentinel/config.yaml), then mapped
environment variables such as HTTP_PORT, MAX_EVENTS or AUTH_MODE.

An invalid configuration is fatal. Validate collects every problem and
returns them in one error wrapping models.ErrInvalidConfig:

	cfg, err := config.Load()
	if errors.Is(err, models.ErrInvalidConfig) {
	    // print err and exit
	}
*/
package config
