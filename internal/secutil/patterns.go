// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package secutil

import (
	"net/url"
	"regexp"
	"strings"
)

// Patterns are matched against lower-cased input, so none of them need (?i).
var (
	sqlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bunion\b(\s+all)?\s+select\b`),
		regexp.MustCompile(`['"]\s*(or|and)\s+\S+\s*(=|<|>|\blike\b)`),
		regexp.MustCompile(`\b(or|and)\s+\d+\s*=\s*\d+`),
		regexp.MustCompile(`\b(insert\s+into|delete\s+from|drop\s+(table|database)|truncate\s+table|alter\s+table)\b`),
		regexp.MustCompile(`\bupdate\s+\w+\s+set\b`),
		regexp.MustCompile(`;\s*(drop|delete|insert|update|select|shutdown|exec)\b`),
		regexp.MustCompile(`'\s*--|--\s*$|/\*.*\*/`),
		regexp.MustCompile(`\b(sleep|benchmark|pg_sleep)\s*\(|\bwaitfor\s+delay\b`),
		regexp.MustCompile(`\bexec(\s+|\s*\()\s*(xp_|sp_)`),
		regexp.MustCompile(`\binformation_schema\b|\bload_file\s*\(|\binto\s+(out|dump)file\b`),
	}

	xssPatterns = []*regexp.Regexp{
		regexp.MustCompile(`<\s*script\b`),
		regexp.MustCompile(`(javascript|vbscript)\s*:`),
		regexp.MustCompile(`\bon(error|load|click|mouseover|focus|blur|submit|change|keyup|keydown|input)\s*=`),
		regexp.MustCompile(`<\s*(iframe|object|embed|svg|img|body)\b[^>]*\b(src|onerror|onload|href)\s*=`),
		regexp.MustCompile(`document\.(cookie|location|write)|window\.location`),
		regexp.MustCompile(`\beval\s*\(|\bexpression\s*\(`),
	}

	commandPatterns = []*regexp.Regexp{
		regexp.MustCompile("(;|&&|\\|\\||\\||`|\\$\\()\\s*(cat|ls|rm|wget|curl|nc|ncat|bash|sh|zsh|whoami|id|uname|ping|chmod|chown|python\\d?|perl|ruby|php|powershell|cmd)\\b"),
		regexp.MustCompile("`[^`]+`"),
		regexp.MustCompile(`\$\([^)]+\)|\$\{ifs\}`),
		regexp.MustCompile(`/bin/(ba)?sh\b|/etc/(passwd|shadow)\b`),
	}

	traversalPattern = regexp.MustCompile(`(^|[/\\])\.\.([/\\]|$)|%2e%2e|\.\.%2f|\.\.%5c|%252e|%c0%ae|%00|\x00`)
)

// normalizeInput lower-cases input after at most one round of URL decoding.
// Undecodable input is matched as-is.
func normalizeInput(input string) string {
	if d, err := url.QueryUnescape(input); err == nil {
		input = d
	}
	return strings.ToLower(input)
}

func matchAny(patterns []*regexp.Regexp, input string) bool {
	if input == "" {
		return false
	}
	s := normalizeInput(input)
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// HasSQLInjection reports whether input looks like a SQL injection payload.
func HasSQLInjection(input string) bool { return matchAny(sqlPatterns, input) }

// HasXSS reports whether input looks like a cross-site scripting payload.
func HasXSS(input string) bool { return matchAny(xssPatterns, input) }

// HasCommandInjection reports whether input chains or substitutes a shell command.
func HasCommandInjection(input string) bool { return matchAny(commandPatterns, input) }

// HasPathTraversal reports whether input contains a directory escape.
// The raw form is checked too because decoding can consume the evidence
// (for example "%2e%2e" decodes to "..").
func HasPathTraversal(input string) bool {
	if input == "" {
		return false
	}
	if traversalPattern.MatchString(strings.ToLower(input)) {
		return true
	}
	return traversalPattern.MatchString(normalizeInput(input))
}
