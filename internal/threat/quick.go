// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package threat

import (
	"time"

	"github.com/tomtom215/sentinel/internal/models"
)

// QuickScanner is the inline check run on every request before the next
// handler: XSS and scanner signatures on the user agent, SQL injection on
// the path and query values, and command injection on query values. It
// never reads the body.
type QuickScanner struct {
	sqli    Detector
	xss     Detector
	cmd     Detector
	scanner Detector
}

// NewQuickScanner creates a QuickScanner.
func NewQuickScanner() *QuickScanner {
	return &QuickScanner{
		sqli:    NewSQLInjectionDetector(),
		xss:     NewXSSDetector(),
		cmd:     NewCommandInjectionDetector(),
		scanner: NewScannerDetector(),
	}
}

// Scan returns the inline findings. Source and event attribution is left to
// the caller.
func (q *QuickScanner) Scan(userAgent, path string, query map[string][]string) []models.ThreatFinding {
	now := time.Now()
	var out []models.ThreatFinding
	check := func(det Detector, location, input string) {
		if f, ok := det.Detect(input); ok {
			f.Location = location
			f.Timestamp = now
			out = append(out, f)
		}
	}

	check(q.xss, "header.user-agent", userAgent)
	check(q.scanner, "header.user-agent", userAgent)
	check(q.sqli, "path", path)
	for _, key := range sortedKeys(query) {
		for _, v := range query[key] {
			check(q.sqli, "query."+key, v)
			check(q.cmd, "query."+key, v)
		}
	}
	return out
}
