// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package middleware

import (
	"net/http"
	"sync/atomic"
)

// InFlight counts requests currently inside the wrapped handler. The HTTP
// service reads it to report abandoned requests when shutdown times out.
type InFlight struct {
	n atomic.Int64
}

// Wrap returns next instrumented with the counter.
func (f *InFlight) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.n.Add(1)
		defer f.n.Add(-1)
		next.ServeHTTP(w, r)
	})
}

// InFlight returns the current count.
func (f *InFlight) InFlight() int64 { return f.n.Load() }
