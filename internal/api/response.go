// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/validation"
)

// Response is the envelope for every administration API response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}

// Error describes a failed request.
type Error struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Meta is attached to every response.
type Meta struct {
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
	RequestID  string    `json:"request_id,omitempty"`
	Count      *int      `json:"count,omitempty"`
}

// API error codes not covered by models.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeRateLimited  = "TOO_MANY_REQUESTS"
	CodeInternal     = "INTERNAL_ERROR"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
)

// responder writes envelopes for one request.
type responder struct {
	w     http.ResponseWriter
	r     *http.Request
	start time.Time
}

func respond(w http.ResponseWriter, r *http.Request) *responder {
	return &responder{w: w, r: r, start: time.Now()}
}

func (rw *responder) meta() Meta {
	return Meta{
		Timestamp:  time.Now().UTC(),
		DurationMs: time.Since(rw.start).Milliseconds(),
		RequestID:  logging.RequestIDFromContext(rw.r.Context()),
	}
}

func (rw *responder) ok(data interface{}) {
	rw.write(http.StatusOK, Response{Success: true, Data: data, Meta: rw.meta()})
}

func (rw *responder) list(data interface{}, count int) {
	m := rw.meta()
	m.Count = &count
	rw.write(http.StatusOK, Response{Success: true, Data: data, Meta: m})
}

func (rw *responder) fail(status int, code, message string, details map[string]interface{}) {
	m := rw.meta()
	rw.write(status, Response{
		Success: false,
		Error:   &Error{Code: code, Message: message, Details: details, RequestID: m.RequestID},
		Meta:    m,
	})
}

// err maps err to a status through its taxonomy code.
func (rw *responder) err(err error) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		rw.fail(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	code := models.Code(err)
	status := statusForCode(code)
	if code == "" {
		code = CodeInternal
		logging.Ctx(rw.r.Context()).Error().Err(err).Str("path", rw.r.URL.Path).Msg("administration request failed")
		rw.fail(status, code, "internal error", nil)
		return
	}
	rw.fail(status, code, err.Error(), nil)
}

func statusForCode(code string) int {
	switch code {
	case models.CodeIncidentNotFound:
		return http.StatusNotFound
	case models.CodeInvalidTransition:
		return http.StatusConflict
	case validation.CodeValidationError, models.CodePathTraversal, models.CodeInvalidMethod:
		return http.StatusBadRequest
	case models.CodeRateLimitExceeded, models.CodeSourceBlocked:
		return http.StatusTooManyRequests
	case models.CodeInvalidConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (rw *responder) write(status int, body Response) {
	rw.w.Header().Set("Content-Type", "application/json")
	rw.w.WriteHeader(status)
	if err := json.NewEncoder(rw.w).Encode(body); err != nil {
		logging.Ctx(rw.r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}
