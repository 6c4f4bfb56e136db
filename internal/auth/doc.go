// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package auth protects the administration API.

Three modes are selected with security.auth_mode:

  - none: every request passes. A warning is logged at startup.
  - basic: HTTP Basic credentials checked against a bcrypt hash of
    security.admin_password.
  - jwt (default): POST /api/v1/auth/login exchanges the admin credentials
    for an HS256 token. Requests then carry "Authorization: Bearer <token>"
    or the "token" cookie.

Usage:

	mw, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
	    return err
	}
	r.Group(func(r chi.Router) {
	    r.Use(mw.Authenticate)
	    r.Get("/security/incidents", h.Incidents)
	})

Rejected requests get a JSON 401 with error code UNAUTHORIZED. In basic
mode the response also carries a WWW-Authenticate challenge.

The monitored traffic itself is never authenticated here; only the
administration routes are wrapped.
*/
package auth
