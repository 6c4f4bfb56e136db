// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package validation wraps go-playground/validator v10 for configuration and
// administration API input.
//
// A single validator instance is built on first use. Field names in messages
// follow json tags (API requests) or koanf tags (configuration), so a failure
// reads "security.jwt_secret must be at least 32 characters" rather than
// naming the Go field.
//
// The custom "severity" tag accepts LOW, MEDIUM, HIGH and CRITICAL.
//
//	type ResolveRequest struct {
//	    Notes string `json:"notes" validate:"required,max=2000"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    // respond 400 with apiErr.Code and apiErr.Message
//	}
package validation
