// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package threat implements pattern-based attack detection over request fields.

# Detectors

Each Detector recognizes one attack class and carries a fixed severity:

	SQL_INJECTION             CRITICAL
	XSS                       HIGH
	COMMAND_INJECTION         CRITICAL
	PATH_TRAVERSAL            HIGH
	LDAP_INJECTION            HIGH
	XXE                       CRITICAL
	HEADER_INJECTION          HIGH
	PROTOTYPE_POLLUTION       HIGH
	SSRF                      HIGH
	TEMPLATE_INJECTION        HIGH
	INSECURE_DESERIALIZATION  CRITICAL
	NOSQL_INJECTION           HIGH

# Dispatcher

Dispatcher.Scan walks the path, query names and values, header values and
the body. JSON bodies are decoded and walked recursively up to MaxDepth
levels; object keys are additionally checked for prototype pollution.
Locations use dotted paths:

	query.id
	header.user-agent
	body.user.roles[2]

# Quick Scanner

QuickScanner is the subset the recorder runs inline before the next
handler. The full Dispatcher runs out of band on the deep-scan workers.

Detection is heuristic. False positives are expected.
*/
package threat
