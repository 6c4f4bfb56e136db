// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package api serves the administration API on a chi router.

Routes:

	GET  /api/v1/health/live
	GET  /api/v1/health/ready
	POST /api/v1/auth/login                        (jwt mode)
	GET  /api/v1/security/incidents                active incidents
	GET  /api/v1/security/incidents/history?limit=
	GET  /api/v1/security/incidents/{id}
	POST /api/v1/security/incidents/{id}/resolve   {"notes", "resolved_by"}
	POST /api/v1/security/incidents/{id}/escalate  {"reason"}
	GET  /api/v1/security/stats
	GET  /api/v1/security/indicators
	GET  /api/v1/security/profiles?limit=
	GET  /api/v1/security/alerts/stream            websocket
	GET  /metrics                                  Prometheus

Every JSON response uses the same envelope:

	{
	  "success": false,
	  "error": {"code": "INCIDENT_NOT_FOUND", "message": "...", "request_id": "..."},
	  "meta": {"timestamp": "...", "duration_ms": 0, "request_id": "..."}
	}

Error codes come from models.Code. INCIDENT_NOT_FOUND maps to 404,
VALIDATION_ERROR to 400 and INVALID_TRANSITION to 409. Anything without a
code is logged and reported as INTERNAL_ERROR.

The /security routes are rate limited per client address with httprate
and authenticated by auth.Middleware. Health routes are open.
*/
package api
