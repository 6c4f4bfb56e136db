// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package secutil

import (
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"

	"github.com/tomtom215/sentinel/internal/models"
)

const (
	// UnknownIP is returned by SanitizeIP for anything it cannot parse.
	UnknownIP = "unknown"

	// Redacted replaces the value of sensitive headers.
	Redacted = "[REDACTED]"

	// MaxPathLength bounds normalized paths.
	MaxPathLength = 2048

	// MaxHeaderValueLength bounds header values in event snapshots.
	MaxHeaderValueLength = 256
)

var allowedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodHead:    {},
	http.MethodOptions: {},
}

var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"x-api-key":           {},
	"x-auth-token":        {},
	"proxy-authorization": {},
}

// SanitizeIP extracts a canonical client address from a raw header or
// RemoteAddr value. Only the first entry of a forwarded list is considered.
//
//	"192.168.1.1, 10.0.0.1" -> "192.168.1.1"
//	"192.168.1.1:8080"      -> "192.168.1.1"
//	"[2001:db8::1]:443"     -> "2001:db8::1"
//	"not-an-ip"             -> "unknown"
func SanitizeIP(raw string) string {
	first := raw
	if i := strings.IndexByte(first, ','); i >= 0 {
		first = first[:i]
	}
	first = strings.TrimSpace(first)
	if first == "" {
		return UnknownIP
	}

	switch {
	case strings.HasPrefix(first, "["):
		host, _, err := net.SplitHostPort(first)
		if err != nil {
			host = strings.TrimSuffix(strings.TrimPrefix(first, "["), "]")
		}
		first = host
	case strings.Count(first, ":") == 1:
		// IPv4 with a port; bare IPv6 always has at least two colons.
		first = first[:strings.IndexByte(first, ':')]
	}

	addr, err := netip.ParseAddr(first)
	if err != nil || addr.Zone() != "" {
		return UnknownIP
	}
	return addr.Unmap().String()
}

// ValidateMethod reports whether m is an accepted HTTP method.
func ValidateMethod(m string) bool {
	_, ok := allowedMethods[m]
	return ok
}

// NormalizePath decodes p once, rejects traversal sequences and returns a
// cleaned absolute path. Traversal is checked on both the raw and decoded
// forms before any cleaning so "/a/../b" is refused rather than collapsed.
func NormalizePath(p string) (string, error) {
	if p == "" {
		return "/", nil
	}

	decoded := p
	if d, err := url.PathUnescape(p); err == nil {
		decoded = d
	}
	if HasPathTraversal(p) || HasPathTraversal(decoded) {
		return "", models.ErrPathTraversal
	}

	if !strings.HasPrefix(decoded, "/") {
		decoded = "/" + decoded
	}
	for strings.Contains(decoded, "//") {
		decoded = strings.ReplaceAll(decoded, "//", "/")
	}
	return Truncate(decoded, MaxPathLength), nil
}

// SanitizeHeaders snapshots h with lower-cased names. Credentials are
// redacted and every other value is truncated.
func SanitizeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		key := strings.ToLower(name)
		if _, ok := sensitiveHeaders[key]; ok {
			out[key] = Redacted
			continue
		}
		out[key] = Truncate(strings.Join(values, ", "), MaxHeaderValueLength)
	}
	return out
}

// Truncate cuts s to at most n bytes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
