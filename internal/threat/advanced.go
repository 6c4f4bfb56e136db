// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package threat

import (
	"regexp"
	"strings"

	"github.com/tomtom215/sentinel/internal/models"
)

// NewLDAPInjectionDetector detects LDAP filter manipulation (HIGH).
func NewLDAPInjectionDetector() Detector {
	return &patternDetector{
		threatType: models.ThreatLDAPInjection,
		severity:   models.SeverityHigh,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\*\)\s*\(`),                          // *)(uid=*
			regexp.MustCompile(`\)\s*\(\s*[|&!]`),                    // )(|(
			regexp.MustCompile(`\(\s*[|&]\s*\(\s*\w+\s*=`),           // (|(cn=
			regexp.MustCompile(`\(\s*\w+\s*=\s*\*\s*\)`),             // (uid=*)
			regexp.MustCompile(`\b(objectclass|samaccountname|userpassword)\s*=`),
		},
		lower: true,
	}
}

// NewXXEDetector detects XML external entity payloads (CRITICAL).
func NewXXEDetector() Detector {
	return &patternDetector{
		threatType: models.ThreatXXE,
		severity:   models.SeverityCritical,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`<!doctype[^>]*\[`),
			regexp.MustCompile(`<!entity`),
			regexp.MustCompile(`\bsystem\s+["'](file|https?|ftp|php|expect|jar|gopher)://`),
			regexp.MustCompile(`xmlns:xi\s*=|<xi:include`),
		},
		lower: true,
	}
}

// NewHeaderInjectionDetector detects CRLF sequences followed by a header
// line, the shape of response splitting (HIGH).
func NewHeaderInjectionDetector() Detector {
	return &patternDetector{
		threatType: models.ThreatHeaderInjection,
		severity:   models.SeverityHigh,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(\r\n|\r|\n)\s*[\w-]+\s*:`),
			regexp.MustCompile(`(%0d%0a|%0d|%0a)\s*[\w-]+\s*(:|%3a)`),
		},
		lower: true,
	}
}

// NewSSRFDetector detects URLs aimed at loopback, link-local, private or
// metadata endpoints and non-HTTP schemes (HIGH).
func NewSSRFDetector() Detector {
	return &patternDetector{
		threatType: models.ThreatSSRF,
		severity:   models.SeverityHigh,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(https?|ftp)://(localhost|127\.\d+\.\d+\.\d+|0\.0\.0\.0|\[?::1\]?|0x7f\w*|2130706433)\b`),
			regexp.MustCompile(`\b(https?|ftp)://(10\.\d+|192\.168|172\.(1[6-9]|2\d|3[01]))\.\d+`),
			regexp.MustCompile(`\b(https?)://(169\.254\.169\.254|metadata\.google\.internal|100\.100\.100\.200)`),
			regexp.MustCompile(`\b(file|gopher|dict|ldap|tftp|jar|netdoc)://`),
		},
		lower: true,
	}
}

// NewTemplateInjectionDetector detects server-side template expressions (HIGH).
func NewTemplateInjectionDetector() Detector {
	return &patternDetector{
		threatType: models.ThreatTemplateInjection,
		severity:   models.SeverityHigh,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\{\{.*\}\}`),
			regexp.MustCompile(`\$\{[^}]*\}`),
			regexp.MustCompile(`<%.*%>`),
			regexp.MustCompile(`#\{[^}]*\}`),
			regexp.MustCompile(`\{%.*%\}`),
			regexp.MustCompile(`__class__|__globals__|__subclasses__|__builtins__`),
		},
	}
}

// NewDeserializationDetector detects serialized object payloads for common
// runtimes (CRITICAL).
func NewDeserializationDetector() Detector {
	return &patternDetector{
		threatType: models.ThreatInsecureDeserialization,
		severity:   models.SeverityCritical,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bO:\d+:"[^"]+":\d+:\{`), // PHP object
			regexp.MustCompile(`rO0AB|\baced0005\b`),      // Java stream magic
			regexp.MustCompile(`!!python/(object|name|module)`),
			regexp.MustCompile(`\b__reduce__\b|\bcposix\b|\bcos\nsystem`),
			regexp.MustCompile(`"\$type"\s*:\s*"[^"]*,\s*[^"]*"`), // .NET type hints
			regexp.MustCompile(`"@type"\s*:\s*"[\w.]+"`),          // fastjson autotype
			regexp.MustCompile(`_\$\$ND_FUNC\$\$_`),               // node-serialize
		},
	}
}

// NewNoSQLInjectionDetector detects MongoDB-style operator injection (HIGH).
func NewNoSQLInjectionDetector() Detector {
	return &patternDetector{
		threatType: models.ThreatNoSQLInjection,
		severity:   models.SeverityHigh,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\$(where|ne|gt|gte|lt|lte|regex|in|nin|or|and|not|nor|exists|expr|elemmatch)\b`),
			regexp.MustCompile(`\[\$\w+\]`),
			regexp.MustCompile(`;\s*return\s+(true|1)\b|\bthis\.\w+\s*[=!]=`),
			regexp.MustCompile(`\bsleep\s*\(\s*\d+\s*\)\s*;?\s*\}`),
		},
		lower: true,
	}
}

// pollutionKeys are object keys that reach the prototype chain.
var pollutionKeys = map[string]struct{}{
	"__proto__":        {},
	"constructor":      {},
	"prototype":        {},
	"__definegetter__": {},
	"__definesetter__": {},
	"__lookupgetter__": {},
	"__lookupsetter__": {},
}

// IsPollutionKey reports whether an object key is a prototype pollution vector.
func IsPollutionKey(key string) bool {
	_, ok := pollutionKeys[strings.ToLower(key)]
	return ok
}

// prototypePollutionDetector flags values and query keys that address the
// prototype chain, e.g. "__proto__[isAdmin]" or "constructor.prototype".
type prototypePollutionDetector struct{}

// NewPrototypePollutionDetector detects prototype pollution (HIGH).
func NewPrototypePollutionDetector() Detector { return prototypePollutionDetector{} }

var pollutionPattern = regexp.MustCompile(`__proto__|constructor\s*[\[.]\s*["']?prototype|__(define|lookup)(getter|setter)__`)

func (prototypePollutionDetector) Type() models.ThreatType {
	return models.ThreatPrototypePollution
}

func (prototypePollutionDetector) Severity() models.Severity { return models.SeverityHigh }

func (prototypePollutionDetector) Detect(input string) (models.ThreatFinding, bool) {
	s := strings.ToLower(input)
	loc := pollutionPattern.FindStringIndex(s)
	if loc == nil {
		return models.ThreatFinding{}, false
	}
	return newFinding(models.ThreatPrototypePollution, models.SeverityHigh, 0.85, excerptFrom(input, s, loc[0])), true
}
